package waveform

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"intervox/domain/recording"

	"gonum.org/v1/gonum/floats"
)

// DefaultBarCount is the number of visible bars in the scrolling history
const DefaultBarCount = 40

// Monitor samples live audio amplitude while a recording session is in the
// recording state. It is strictly observational: it never affects the
// captured artifact and may be omitted entirely in headless use.
type Monitor struct {
	mu      sync.Mutex
	bars    int
	history []float64
}

// NewMonitor creates a monitor with a fixed-length rolling bar history
func NewMonitor(bars int) *Monitor {
	if bars <= 0 {
		bars = DefaultBarCount
	}
	return &Monitor{bars: bars}
}

// Observe computes the RMS amplitude of one PCM chunk and appends it to
// the rolling history, evicting the oldest sample past the bar count.
func (m *Monitor) Observe(chunk []byte) {
	amp := RMS(chunk)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, amp)
	if len(m.history) > m.bars {
		m.history = m.history[len(m.history)-m.bars:]
	}
}

// Bars returns a copy of the current amplitude history, oldest first
func (m *Monitor) Bars() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.history))
	copy(out, m.history)
	return out
}

// Reset clears the history
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// Run samples the session's latest chunk at the given interval for as long
// as the session is recording, then returns. No frame callbacks survive
// past a state change; cancelling the context also ends the loop.
func (m *Monitor) Run(ctx context.Context, session *recording.Session, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if session.State() != recording.StateRecording {
				return
			}
			if chunk := session.LatestChunk(); chunk != nil {
				m.Observe(chunk)
			}
		}
	}
}

// RMS computes the root-mean-square amplitude of a little-endian 16-bit
// PCM buffer, normalized to [0,1]
func RMS(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(chunk[2*i:]))
		samples[i] = float64(v) / 32768.0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(n))
}
