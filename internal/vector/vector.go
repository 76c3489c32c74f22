// Package vector holds the small amount of linear algebra the reference
// store and the classifier share. Sums are accumulated in float64 and the
// stored form stays float32, the same trade-off the embedding server makes.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon is added to every norm before dividing so a near-zero vector
// normalizes to a near-zero vector instead of NaN.
const Epsilon = 1e-12

var (
	// ErrEmptySet is returned when there is nothing to aggregate.
	ErrEmptySet = errors.New("empty embedding list")
	// ErrEmptyVector is returned for a zero-length vector inside a set.
	ErrEmptyVector = errors.New("zero-length embedding")
	// ErrRagged is returned when vectors of one set differ in length.
	ErrRagged = errors.New("embeddings have unequal lengths")
)

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns v / (|v| + Epsilon) as a new slice.
func Normalize(v []float32) []float32 {
	n := Norm(v) + Epsilon
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Unit is Normalize without the float32 round trip, used for scoring.
func Unit(v []float32) []float64 {
	n := Norm(v) + Epsilon
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x) / n
	}
	return out
}

// Mean returns the coordinate-wise arithmetic mean of vs.
func Mean(vs [][]float32) ([]float32, error) {
	if len(vs) == 0 {
		return nil, ErrEmptySet
	}
	dim := len(vs[0])
	if dim == 0 {
		return nil, ErrEmptyVector
	}

	sum := make([]float64, dim)
	for i, v := range vs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, expected %d", ErrRagged, i, len(v), dim)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	out := make([]float32, dim)
	count := float64(len(vs))
	for j, s := range sum {
		out[j] = float32(s / count)
	}
	return out, nil
}

// Dot returns the dot product of a and b. Lengths must match.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
