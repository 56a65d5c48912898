// Package sketch implements the count-min sketches backing the MIDAS
// detectors. An EdgeSketch approximates how often a (source, dest) pair has
// been seen; a NodeSketch does the same for a single endpoint. Counts are
// never exact: each sketch keeps a small number of hash rows and reports the
// minimum across them, so estimates can only overshoot.
//
// All randomness is drawn from a seeded source. Two sketches built with the
// same dimensions and seed hash identically, which is what makes repeated
// runs of the scoring pipeline byte-reproducible.
package sketch

import "math/rand"

// row is a single hash row of buckets. The hash coefficients a and b are
// fixed at construction time.
type row struct {
	a       uint64
	b       uint64
	buckets []float64
}

func newRow(buckets uint64, rng *rand.Rand) row {
	return row{
		a:       uint64(rng.Uint32())%(buckets-1) + 1,
		b:       uint64(rng.Uint32()) % buckets,
		buckets: make([]float64, buckets),
	}
}

// index maps a key pair onto a bucket. Multiplications wrap on uint64
// overflow; the final modulus keeps the result in range.
func (r *row) index(m, source, dest uint64) uint64 {
	return ((m*dest+source)*r.a + r.b) % uint64(len(r.buckets))
}

func (r *row) add(m, source, dest uint64, weight float64) {
	r.buckets[r.index(m, source, dest)] += weight
}

func (r *row) count(m, source, dest uint64) float64 {
	return r.buckets[r.index(m, source, dest)]
}

func (r *row) scale(factor float64) {
	for i := range r.buckets {
		r.buckets[i] *= factor
	}
}

func (r *row) clear() {
	for i := range r.buckets {
		r.buckets[i] = 0
	}
}

// EdgeSketch estimates occurrence counts of (source, dest) pairs.
type EdgeSketch struct {
	m    uint64
	rows []row
}

// NewEdgeSketch builds a sketch with the given number of hash rows and
// buckets per row. m is the multiplier folding dest into the hashed key.
// Rows and buckets must be positive, buckets at least 2.
func NewEdgeSketch(rows, buckets, m, seed uint64) *EdgeSketch {
	rng := rand.New(rand.NewSource(int64(seed)))
	s := &EdgeSketch{m: m, rows: make([]row, 0, rows)}
	for i := uint64(0); i < rows; i++ {
		s.rows = append(s.rows, newRow(buckets, rng))
	}
	return s
}

// Insert adds weight to the edge's bucket in every row.
func (s *EdgeSketch) Insert(source, dest uint64, weight float64) {
	for i := range s.rows {
		s.rows[i].add(s.m, source, dest, weight)
	}
}

// Count returns the minimum estimate across rows.
func (s *EdgeSketch) Count(source, dest uint64) float64 {
	min := s.rows[0].count(s.m, source, dest)
	for i := 1; i < len(s.rows); i++ {
		if c := s.rows[i].count(s.m, source, dest); c < min {
			min = c
		}
	}
	return min
}

// Decay multiplies every bucket by factor.
func (s *EdgeSketch) Decay(factor float64) {
	for i := range s.rows {
		s.rows[i].scale(factor)
	}
}

// Clear zeroes every bucket.
func (s *EdgeSketch) Clear() {
	for i := range s.rows {
		s.rows[i].clear()
	}
}

// NodeSketch estimates occurrence counts of single endpoints.
type NodeSketch struct {
	rows []row
}

// NewNodeSketch builds a node sketch. Dimension rules match NewEdgeSketch.
func NewNodeSketch(rows, buckets, seed uint64) *NodeSketch {
	rng := rand.New(rand.NewSource(int64(seed)))
	s := &NodeSketch{rows: make([]row, 0, rows)}
	for i := uint64(0); i < rows; i++ {
		s.rows = append(s.rows, newRow(buckets, rng))
	}
	return s
}

// Insert adds weight to the node's bucket in every row.
func (s *NodeSketch) Insert(node uint64, weight float64) {
	for i := range s.rows {
		s.rows[i].add(0, node, 0, weight)
	}
}

// Count returns the minimum estimate across rows.
func (s *NodeSketch) Count(node uint64) float64 {
	min := s.rows[0].count(0, node, 0)
	for i := 1; i < len(s.rows); i++ {
		if c := s.rows[i].count(0, node, 0); c < min {
			min = c
		}
	}
	return min
}

// Decay multiplies every bucket by factor.
func (s *NodeSketch) Decay(factor float64) {
	for i := range s.rows {
		s.rows[i].scale(factor)
	}
}
