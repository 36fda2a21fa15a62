// Package distance provides the Mahalanobis metric used to compare donor and
// target feature vectors when more than one continuous feature is in play.
package distance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrDimensionMismatch is returned when a vector does not match the metric.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// ridgeAttempts bounds how often a singular covariance is regularized.
const ridgeAttempts = 4

// Mahalanobis measures sqrt((x-y)' Σ⁻¹ (x-y)) for a fixed reference
// distribution. It is immutable and safe for concurrent use.
type Mahalanobis struct {
	dim  int
	mean []float64
	inv  *mat.SymDense
}

// NewMahalanobis estimates the reference distribution from sample rows.
// weights may be nil; otherwise it carries one frequency weight per row.
func NewMahalanobis(samples [][]float64, weights []float64) (*Mahalanobis, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	dim := len(samples[0])
	if dim == 0 {
		return nil, fmt.Errorf("samples have zero dimension")
	}
	if weights != nil && len(weights) != len(samples) {
		return nil, fmt.Errorf("%w: %d weights for %d samples", ErrDimensionMismatch, len(weights), len(samples))
	}

	data := make([]float64, 0, len(samples)*dim)
	for i, row := range samples {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: sample %d has %d values, want %d", ErrDimensionMismatch, i, len(row), dim)
		}
		data = append(data, row...)
	}
	if weights != nil {
		var total float64
		for _, w := range weights {
			if w < 0 {
				return nil, fmt.Errorf("negative sample weight %v", w)
			}
			total += w
		}
		if total <= 1 {
			return nil, fmt.Errorf("total sample weight %v must exceed 1", total)
		}
	}

	x := mat.NewDense(len(samples), dim, data)
	mean := make([]float64, dim)
	for j := 0; j < dim; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), weights)
	}

	cov := mat.NewSymDense(dim, nil)
	stat.CovarianceMatrix(cov, x, weights)

	return NewFromCovariance(mean, cov)
}

// NewFromCovariance builds a metric from a known mean and covariance. A
// covariance that is not positive definite gets a small ridge added to its
// diagonal before inversion.
func NewFromCovariance(mean []float64, cov *mat.SymDense) (*Mahalanobis, error) {
	dim := cov.SymmetricDim()
	if len(mean) != dim {
		return nil, fmt.Errorf("%w: mean has %d values, covariance is %dx%d", ErrDimensionMismatch, len(mean), dim, dim)
	}

	work := mat.NewSymDense(dim, nil)
	work.CopySym(cov)

	scale := mat.Trace(cov) / float64(dim)
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	ridge := 1e-9 * scale

	for attempt := 0; attempt <= ridgeAttempts; attempt++ {
		var chol mat.Cholesky
		if chol.Factorize(work) {
			inv := mat.NewSymDense(dim, nil)
			if err := chol.InverseTo(inv); err == nil {
				return &Mahalanobis{
					dim:  dim,
					mean: append([]float64(nil), mean...),
					inv:  inv,
				}, nil
			}
		}
		for i := 0; i < dim; i++ {
			work.SetSym(i, i, work.At(i, i)+ridge)
		}
		ridge *= 1000
	}
	return nil, fmt.Errorf("covariance matrix is singular")
}

// Dim returns the feature dimension.
func (m *Mahalanobis) Dim() int { return m.dim }

// Mean returns a copy of the reference mean vector.
func (m *Mahalanobis) Mean() []float64 {
	return append([]float64(nil), m.mean...)
}

// Distance returns the Mahalanobis distance between x and y.
func (m *Mahalanobis) Distance(x, y []float64) (float64, error) {
	if len(x) != m.dim || len(y) != m.dim {
		return 0, fmt.Errorf("%w: got %d and %d values, metric has %d", ErrDimensionMismatch, len(x), len(y), m.dim)
	}
	diff := make([]float64, m.dim)
	for i := range diff {
		diff[i] = x[i] - y[i]
	}
	v := mat.NewVecDense(m.dim, diff)
	q := mat.Inner(v, m.inv, v)
	if q <= 0 {
		return 0, nil
	}
	return math.Sqrt(q), nil
}
