package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/photo-triage/internal/constants"
)

const faceEndpoint = "/embed/face"

// FaceDetection is a single face found by the embedding server.
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse is the body returned by the face endpoint.
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// FaceEmbedder asks a remote embedding server for face embeddings and keeps
// the one with the highest detection score.
type FaceEmbedder struct {
	baseURL string
	client  *http.Client
	maxSize int
	breaker *breaker
}

// FaceOption customizes a FaceEmbedder.
type FaceOption func(*FaceEmbedder)

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(cfg BreakerConfig, logger *slog.Logger) FaceOption {
	return func(f *FaceEmbedder) { f.breaker = newBreaker("face-embedder", cfg, logger) }
}

// NewFaceEmbedder creates an embedder for the server at baseURL.
func NewFaceEmbedder(baseURL string, logger *slog.Logger, opts ...FaceOption) *FaceEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FaceEmbedder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		maxSize: constants.MaxImageSize,
		breaker: newBreaker("face-embedder", DefaultBreakerConfig(), logger),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Embedder.
func (f *FaceEmbedder) Name() string {
	return KindFace
}

// Embed implements Embedder. Images without a detected face return ErrNoContent.
func (f *FaceEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	data, err := fitWithin(image, f.maxSize)
	if err != nil {
		return nil, err
	}

	return f.breaker.do(ctx, func() ([]float32, error) {
		resp, err := f.detectFaces(ctx, data)
		if err != nil {
			return nil, err
		}
		best := bestFace(resp.Faces)
		if best == nil {
			return nil, fmt.Errorf("%w: no face detected", ErrNoContent)
		}
		return best.Embedding, nil
	})
}

// bestFace returns the detection with the highest score that carries an
// embedding, or nil.
func bestFace(faces []FaceDetection) *FaceDetection {
	var best *FaceDetection
	for i := range faces {
		if len(faces[i].Embedding) == 0 {
			continue
		}
		if best == nil || faces[i].DetScore > best.DetScore {
			best = &faces[i]
		}
	}
	return best
}

func (f *FaceEmbedder) detectFaces(ctx context.Context, image []byte) (*FaceResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(image))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+faceEndpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}
