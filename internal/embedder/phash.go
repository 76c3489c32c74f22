package embedder

import (
	"context"
	"image"
	"math"
	"slices"

	"golang.org/x/image/draw"
)

const (
	hashSize = 8
	dctSize  = 32
	hashBits = hashSize * hashSize
)

// HashEmbedder embeds an image as its 64-bit perceptual hash, one element
// per bit, most significant bit first.
type HashEmbedder struct{}

// Name implements Embedder.
func (HashEmbedder) Name() string {
	return KindPHash
}

// Embed implements Embedder. Undecodable images return ErrNoContent.
func (HashEmbedder) Embed(ctx context.Context, data []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	return HashVector(PerceptualHash(img)), nil
}

// HashVector expands a hash into hashBits elements of 0 or 1.
func HashVector(hash uint64) []float32 {
	out := make([]float32, hashBits)
	for i := range hashBits {
		if hash&(1<<(hashBits-1-i)) != 0 {
			out[i] = 1
		}
	}
	return out
}

// PerceptualHash computes a DCT hash: the image is reduced to 32x32 luma,
// transformed, and each of the 8x8 lowest frequencies (DC included) becomes
// one bit set when the coefficient exceeds their median.
func PerceptualHash(img image.Image) uint64 {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	small := image.NewGray(image.Rect(0, 0, dctSize, dctSize))
	draw.CatmullRom.Scale(small, small.Bounds(), gray, bounds, draw.Src, nil)

	pixels := make([][]float64, dctSize)
	for y := range dctSize {
		pixels[y] = make([]float64, dctSize)
		for x := range dctSize {
			pixels[y][x] = float64(small.GrayAt(x, y).Y)
		}
	}

	coeffs := dct2D(pixels)

	low := make([]float64, 0, hashBits)
	for y := range hashSize {
		low = append(low, coeffs[y][:hashSize]...)
	}
	med := median(low)

	var hash uint64
	for i, c := range low {
		if c > med {
			hash |= 1 << (hashBits - 1 - i)
		}
	}
	return hash
}

// dct2D applies an unnormalized DCT-II along columns and then rows.
func dct2D(in [][]float64) [][]float64 {
	n := len(in)
	cos := make([][]float64, n)
	for k := range n {
		cos[k] = make([]float64, n)
		for i := range n {
			cos[k][i] = math.Cos(math.Pi * float64(k) * (2*float64(i) + 1) / (2 * float64(n)))
		}
	}

	cols := make([][]float64, n)
	for k := range n {
		cols[k] = make([]float64, n)
		for x := range n {
			var sum float64
			for y := range n {
				sum += in[y][x] * cos[k][y]
			}
			cols[k][x] = 2 * sum
		}
	}

	out := make([][]float64, n)
	for y := range n {
		out[y] = make([]float64, n)
		for k := range n {
			var sum float64
			for x := range n {
				sum += cols[y][x] * cos[k][x]
			}
			out[y][k] = 2 * sum
		}
	}
	return out
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
