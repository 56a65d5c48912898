// Package detector implements the MIDAS family of streaming anomaly
// detectors over edge streams. An edge is a (source, dest, time) triple;
// each insert returns an anomaly score for that edge, computed from
// count-min sketch estimates of how surprising the edge is at the current
// tick compared to its history.
//
// Two variants are provided. Midas resets its per-tick counts whenever time
// advances. MidasR ("relational") instead decays them by alpha^dt and also
// scores the source and destination nodes individually, taking the worst of
// the three signals.
package detector

import (
	"fmt"
	"math"

	"midas/internal/sketch"
)

// Sketch dimensions and decay factor used when a Params field is left zero.
const (
	DefaultRows    = 2
	DefaultBuckets = 769
	DefaultMValue  = 773
	DefaultAlpha   = 0.6
)

// Base seeds for the two variants. Each internal sketch derives its own seed
// from the base so no two sketches share a hash layout.
const (
	MidasSeed  = 39
	MidasRSeed = 538
)

// Variant names accepted by New.
const (
	VariantMidas  = "midas"
	VariantMidasR = "midas-r"
)

// Detector scores a stream of edges. Implementations are not safe for
// concurrent use; the stream is inherently ordered.
type Detector interface {
	// Insert records an edge and returns its anomaly score. It fails when
	// the edge's time precedes the detector clock, without mutating state.
	Insert(source, dest, time uint64) (float64, error)

	// Query returns the score an edge would receive at the current tick.
	Query(source, dest uint64) float64

	// CurrentTime returns the detector clock (the largest time inserted).
	CurrentTime() uint64
}

// Params configures a detector. Zero fields fall back to the defaults above.
type Params struct {
	Rows    uint64
	Buckets uint64
	MValue  uint64
	Alpha   float64
	Seed    uint64
}

// DefaultParams returns the reference configuration.
func DefaultParams() Params {
	return Params{
		Rows:    DefaultRows,
		Buckets: DefaultBuckets,
		MValue:  DefaultMValue,
		Alpha:   DefaultAlpha,
	}
}

// withDefaults fills zero fields, using base as the seed fallback.
func (p Params) withDefaults(base uint64) Params {
	if p.Rows == 0 {
		p.Rows = DefaultRows
	}
	if p.Buckets == 0 {
		p.Buckets = DefaultBuckets
	}
	if p.MValue == 0 {
		p.MValue = DefaultMValue
	}
	if p.Alpha == 0 {
		p.Alpha = DefaultAlpha
	}
	if p.Seed == 0 {
		p.Seed = base
	}
	return p
}

func (p Params) validate() error {
	if p.Buckets < 2 {
		return fmt.Errorf("detector: buckets must be at least 2, got %d", p.Buckets)
	}
	if p.Rows < 1 {
		return fmt.Errorf("detector: rows must be at least 1, got %d", p.Rows)
	}
	if p.Alpha <= 0 || p.Alpha >= 1 {
		return fmt.Errorf("detector: alpha must be in (0, 1), got %v", p.Alpha)
	}
	return nil
}

// New builds a detector for the named variant.
func New(variant string, p Params) (Detector, error) {
	switch variant {
	case VariantMidas:
		return NewMidas(p)
	case VariantMidasR:
		return NewMidasR(p)
	default:
		return nil, fmt.Errorf("detector: unknown variant %q (want %q or %q)", variant, VariantMidas, VariantMidasR)
	}
}

// countsToAnom is the chi-squared style deviation of the current-tick count
// from the historical mean.
func countsToAnom(total, current float64, tick uint64) float64 {
	mean := total / float64(tick)
	sqerr := math.Pow(math.Max(0, current-mean), 2)
	return sqerr/mean + sqerr/(mean*math.Max(1, float64(tick-1)))
}

// Midas is the plain variant: per-tick counts are cleared on every tick.
type Midas struct {
	currentTime uint64

	current *sketch.EdgeSketch
	total   *sketch.EdgeSketch
}

// NewMidas builds a plain MIDAS detector.
func NewMidas(p Params) (*Midas, error) {
	p = p.withDefaults(MidasSeed)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Midas{
		current: sketch.NewEdgeSketch(p.Rows, p.Buckets, p.MValue, p.Seed+1),
		total:   sketch.NewEdgeSketch(p.Rows, p.Buckets, p.MValue, p.Seed+2),
	}, nil
}

// CurrentTime returns the detector clock.
func (m *Midas) CurrentTime() uint64 { return m.currentTime }

// Insert records an edge and returns its anomaly score.
func (m *Midas) Insert(source, dest, time uint64) (float64, error) {
	if time < m.currentTime {
		return 0, fmt.Errorf("detector: time %d precedes current tick %d", time, m.currentTime)
	}
	if time > m.currentTime {
		m.current.Clear()
		m.currentTime = time
	}

	m.current.Insert(source, dest, 1)
	m.total.Insert(source, dest, 1)

	return m.Query(source, dest), nil
}

// Query returns the score an edge would receive at the current tick. The
// first tick scores zero: there is no history to deviate from yet.
func (m *Midas) Query(source, dest uint64) float64 {
	if m.currentTime == 1 {
		return 0
	}
	mean := m.total.Count(source, dest) / float64(m.currentTime)
	sqerr := math.Pow(m.current.Count(source, dest)-mean, 2)
	return sqerr/mean + sqerr/(mean*float64(m.currentTime-1))
}

// MidasR is the relational variant: per-tick counts decay by alpha^dt when
// time advances, and source/dest node activity contributes to the score.
type MidasR struct {
	currentTime uint64
	alpha       float64

	currentCount *sketch.EdgeSketch
	totalCount   *sketch.EdgeSketch

	sourceScore *sketch.NodeSketch
	destScore   *sketch.NodeSketch
	sourceTotal *sketch.NodeSketch
	destTotal   *sketch.NodeSketch
}

// NewMidasR builds a MIDAS-R detector.
func NewMidasR(p Params) (*MidasR, error) {
	p = p.withDefaults(MidasRSeed)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &MidasR{
		alpha:        p.Alpha,
		currentCount: sketch.NewEdgeSketch(p.Rows, p.Buckets, p.MValue, p.Seed+1),
		totalCount:   sketch.NewEdgeSketch(p.Rows, p.Buckets, p.MValue, p.Seed+2),
		sourceScore:  sketch.NewNodeSketch(p.Rows, p.Buckets, p.Seed+3),
		destScore:    sketch.NewNodeSketch(p.Rows, p.Buckets, p.Seed+4),
		sourceTotal:  sketch.NewNodeSketch(p.Rows, p.Buckets, p.Seed+5),
		destTotal:    sketch.NewNodeSketch(p.Rows, p.Buckets, p.Seed+6),
	}, nil
}

// CurrentTime returns the detector clock.
func (m *MidasR) CurrentTime() uint64 { return m.currentTime }

// Alpha returns the decay factor applied per elapsed tick.
func (m *MidasR) Alpha() float64 { return m.alpha }

// Insert records an edge and returns its anomaly score. The value equals
// Query(source, dest) evaluated immediately after the insert.
func (m *MidasR) Insert(source, dest, time uint64) (float64, error) {
	if time < m.currentTime {
		return 0, fmt.Errorf("detector: time %d precedes current tick %d", time, m.currentTime)
	}
	if time > m.currentTime {
		// Decay once by alpha^dt instead of once per elapsed tick; sparse
		// streams can skip many ticks between edges.
		decay := math.Pow(m.alpha, float64(time-m.currentTime))
		m.currentCount.Decay(decay)
		m.sourceScore.Decay(decay)
		m.destScore.Decay(decay)
		m.currentTime = time
	}

	m.currentCount.Insert(source, dest, 1)
	m.totalCount.Insert(source, dest, 1)

	m.sourceScore.Insert(source, 1)
	m.destScore.Insert(dest, 1)
	m.sourceTotal.Insert(source, 1)
	m.destTotal.Insert(dest, 1)

	return m.Query(source, dest), nil
}

// Query returns log1p of the worst deviation among the edge itself, its
// source node and its dest node.
func (m *MidasR) Query(source, dest uint64) float64 {
	edge := countsToAnom(
		m.totalCount.Count(source, dest),
		m.currentCount.Count(source, dest),
		m.currentTime,
	)
	src := countsToAnom(
		m.sourceTotal.Count(source),
		m.sourceScore.Count(source),
		m.currentTime,
	)
	dst := countsToAnom(
		m.destTotal.Count(dest),
		m.destScore.Count(dest),
		m.currentTime,
	)

	return math.Log1p(math.Max(math.Max(src, dst), edge))
}
