// Package embedder turns image bytes into embedding vectors.
//
// Two backends exist: a remote face embedder (one vector per image, taken
// from the most confident detected face) and a local 64-bit perceptual hash
// expanded into a 0/1 vector. Both signal "nothing usable in this image"
// with ErrNoContent, which callers treat as a skip rather than a failure.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/photo-triage/internal/vector"
)

var (
	// ErrNoContent means the image decoded but has nothing to embed, or
	// could not be decoded at all.
	ErrNoContent = errors.New("no embeddable content")
	// ErrUnavailable is returned while the remote embedder's circuit is open.
	ErrUnavailable = errors.New("embedding server unavailable")
)

// Embedder computes one vector per image. Vectors from one Embedder always
// have the same length.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
	Name() string
}

// Kinds accepted by New.
const (
	KindAuto  = "auto"
	KindFace  = "face"
	KindPHash = "phash"
)

// New selects a backend. KindAuto picks the face embedder when an embedding
// URL is configured and the perceptual hash otherwise. The result always
// returns L2-normalized vectors.
func New(kind, embeddingURL string, logger *slog.Logger) (Embedder, error) {
	if kind == KindAuto {
		kind = KindPHash
		if embeddingURL != "" {
			kind = KindFace
		}
	}

	switch kind {
	case KindFace:
		if embeddingURL == "" {
			return nil, errors.New("face embedder requires an embedding server URL")
		}
		return Normalizing(NewFaceEmbedder(embeddingURL, logger)), nil
	case KindPHash:
		return Normalizing(HashEmbedder{}), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", kind)
	}
}

type normalizing struct {
	inner Embedder
}

// Normalizing wraps e so every vector it returns has unit length.
func Normalizing(e Embedder) Embedder {
	return normalizing{inner: e}
}

func (n normalizing) Embed(ctx context.Context, image []byte) ([]float32, error) {
	v, err := n.inner.Embed(ctx, image)
	if err != nil {
		return nil, err
	}
	return vector.Normalize(v), nil
}

func (n normalizing) Name() string {
	return n.inner.Name()
}
