package sketch

import (
	"math"
	"testing"
)

func TestEdgeSketch_CountNeverUndershoots(t *testing.T) {
	s := NewEdgeSketch(2, 769, 773, 42)

	s.Insert(1, 2, 1)
	s.Insert(1, 2, 1)
	s.Insert(3, 4, 1)

	if got := s.Count(1, 2); got < 2 {
		t.Errorf("Count(1,2) = %v, want >= 2", got)
	}
	if got := s.Count(3, 4); got < 1 {
		t.Errorf("Count(3,4) = %v, want >= 1", got)
	}
}

func TestEdgeSketch_UnseenEdgeZeroWhenNoCollision(t *testing.T) {
	s := NewEdgeSketch(2, 769, 773, 42)
	if got := s.Count(5, 6); got != 0 {
		t.Errorf("Count on empty sketch = %v, want 0", got)
	}
}

func TestEdgeSketch_Deterministic(t *testing.T) {
	a := NewEdgeSketch(2, 769, 773, 99)
	b := NewEdgeSketch(2, 769, 773, 99)

	edges := [][2]uint64{{1, 2}, {3, 4}, {1, 2}, {700, 12}, {42, 42}}
	for _, e := range edges {
		a.Insert(e[0], e[1], 1)
		b.Insert(e[0], e[1], 1)
	}
	for _, e := range edges {
		if av, bv := a.Count(e[0], e[1]), b.Count(e[0], e[1]); av != bv {
			t.Errorf("Count(%d,%d) differs between same-seed sketches: %v vs %v", e[0], e[1], av, bv)
		}
	}
}

func TestEdgeSketch_DifferentSeedsDifferentLayout(t *testing.T) {
	a := NewEdgeSketch(2, 769, 773, 1)
	b := NewEdgeSketch(2, 769, 773, 2)

	diverged := false
	for i := range a.rows {
		if a.rows[i].a != b.rows[i].a || a.rows[i].b != b.rows[i].b {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Error("expected different seeds to draw different hash coefficients")
	}
}

func TestEdgeSketch_DecayAndClear(t *testing.T) {
	s := NewEdgeSketch(2, 769, 773, 7)
	s.Insert(1, 2, 4)

	s.Decay(0.5)
	if got := s.Count(1, 2); math.Abs(got-2) > 1e-12 {
		t.Errorf("after Decay(0.5): Count = %v, want 2", got)
	}

	s.Clear()
	if got := s.Count(1, 2); got != 0 {
		t.Errorf("after Clear: Count = %v, want 0", got)
	}
}

func TestNodeSketch_CountAndDecay(t *testing.T) {
	s := NewNodeSketch(2, 769, 11)

	s.Insert(5, 1)
	s.Insert(5, 1)
	s.Insert(9, 1)

	if got := s.Count(5); got < 2 {
		t.Errorf("Count(5) = %v, want >= 2", got)
	}
	// Keys 5 and 9 cannot share a bucket: with 769 buckets (prime) and
	// coefficients below 2^32 the row hash is injective on small keys.
	s.Decay(0.25)
	if got := s.Count(9); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Count(9) after decay = %v, want 0.25", got)
	}
}

func TestNewEdgeSketch_RowCount(t *testing.T) {
	s := NewEdgeSketch(4, 97, 773, 3)
	if len(s.rows) != 4 {
		t.Errorf("rows = %d, want 4", len(s.rows))
	}
	for _, r := range s.rows {
		if r.a < 1 || r.a >= 97 {
			t.Errorf("row coefficient a = %d out of [1,96]", r.a)
		}
		if r.b >= 97 {
			t.Errorf("row coefficient b = %d out of [0,96]", r.b)
		}
		if len(r.buckets) != 97 {
			t.Errorf("bucket count = %d, want 97", len(r.buckets))
		}
	}
}
