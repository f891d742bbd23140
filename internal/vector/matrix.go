// Package vector holds embedding matrices, scores them against queries, and persists them
// as versioned per-corpus artifacts.
package vector

import (
	"fmt"
	"math"
	"sync"
)

// Matrix is a dense row-major matrix of embeddings. Row i aligns with corpus row i. A
// Matrix is never mutated after construction, so it is safe for concurrent readers.
type Matrix struct {
	rows, cols int
	data       []float32

	normsOnce sync.Once
	norms     []float64
}

// NewMatrix wraps data (len rows*cols) without copying. The caller must not modify data
// afterwards.
func NewMatrix(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid matrix shape %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix data has %d values, want %d", len(data), rows*cols)
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// FromRows copies rows of width cols into a new matrix.
func FromRows(rows [][]float32, cols int) (*Matrix, error) {
	data := make([]float32, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return NewMatrix(len(rows), cols, data)
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the embedding dimension.
func (m *Matrix) Cols() int { return m.cols }

// Row returns a read-only view of row i.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// Equal reports whether m and o have the same shape and every value within tol.
func (m *Matrix) Equal(o *Matrix, tol float64) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i, v := range m.data {
		if math.Abs(float64(v)-float64(o.data[i])) > tol {
			return false
		}
	}
	return true
}

// rowNorms computes the L2 norm of every row once.
func (m *Matrix) rowNorms() []float64 {
	m.normsOnce.Do(func() {
		m.norms = make([]float64, m.rows)
		for i := range m.norms {
			m.norms[i] = L2Norm(m.Row(i))
		}
	})
	return m.norms
}

// Cosine returns the cosine similarity of query against every row, in row order. Rows or
// queries with zero norm score 0.
func (m *Matrix) Cosine(query []float32) ([]float64, error) {
	if len(query) != m.cols {
		return nil, fmt.Errorf("query has %d dimensions, matrix has %d", len(query), m.cols)
	}
	scores := make([]float64, m.rows)
	qn := L2Norm(query)
	if qn == 0 {
		return scores, nil
	}
	norms := m.rowNorms()
	for i := range scores {
		if norms[i] == 0 {
			continue
		}
		scores[i] = clampCosine(Dot(query, m.Row(i)) / (qn * norms[i]))
	}
	return scores, nil
}
