package telemetry

import (
	"time"

	"github.com/samber/mo"
	"golang.org/x/exp/constraints"
)

type sample[T constraints.Integer | constraints.Float] struct {
	value T
	at    time.Time
}

// SpeedMeasure estimates how fast a monotonically increasing value grows, over a ring
// of the most recent samples.
type SpeedMeasure[T constraints.Integer | constraints.Float] struct {
	min, max int
	ring     []sample[T]
	head     int
	size     int
}

// NewSpeedMeasure keeps up to max samples and reports once min are present.
func NewSpeedMeasure[T constraints.Integer | constraints.Float](min, max int) *SpeedMeasure[T] {
	if max < 2 {
		max = 2
	}
	if min < 2 {
		min = 2
	}
	if min > max {
		min = max
	}
	return &SpeedMeasure[T]{min: min, max: max, ring: make([]sample[T], max)}
}

// Push records value observed at time at.
func (m *SpeedMeasure[T]) Push(value T, at time.Time) {
	m.ring[m.head] = sample[T]{value: value, at: at}
	m.head = (m.head + 1) % m.max
	if m.size < m.max {
		m.size++
	}
}

// Get returns the growth per second between the oldest and newest samples.
func (m *SpeedMeasure[T]) Get() mo.Option[float64] {
	if m.size < m.min {
		return mo.None[float64]()
	}

	newest := m.ring[(m.head-1+m.max)%m.max]
	oldest := m.ring[(m.head-m.size+m.max)%m.max]

	elapsed := newest.at.Sub(oldest.at).Seconds()
	if elapsed <= 0 {
		return mo.None[float64]()
	}
	return mo.Some(float64(newest.value-oldest.value) / elapsed)
}

// Len is the number of samples held.
func (m *SpeedMeasure[T]) Len() int { return m.size }

// Reset forgets every sample.
func (m *SpeedMeasure[T]) Reset() {
	m.head, m.size = 0, 0
}
