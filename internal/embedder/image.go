package embedder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeImage decodes any registered format. Failures wrap ErrNoContent.
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrNoContent, err)
	}
	return img, nil
}

// fitWithin returns data unchanged when both sides are within limit, and
// otherwise a JPEG of the image shrunk to fit.
func fitWithin(data []byte, limit int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	w, h, shrink := scaledSize(img.Bounds().Dx(), img.Bounds().Dy(), limit)
	if !shrink {
		return data, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode scaled image: %w", err)
	}
	return out.Bytes(), nil
}

// scaledSize keeps the aspect ratio while bringing the longer side down to
// limit. Neither side drops below one pixel.
func scaledSize(w, h, limit int) (int, int, bool) {
	long := max(w, h)
	if long <= limit {
		return w, h, false
	}
	ratio := float64(limit) / float64(long)
	sw := max(1, int(math.Round(float64(w)*ratio)))
	sh := max(1, int(math.Round(float64(h)*ratio)))
	return sw, sh, true
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case len(data) >= 4 && data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "image/gif"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return "image/bmp"
	case len(data) >= 4 && (string(data[0:4]) == "II*\x00" || string(data[0:4]) == "MM\x00*"):
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
