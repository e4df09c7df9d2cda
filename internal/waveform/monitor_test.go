package waveform

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmChunk(value int16, samples int) []byte {
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(value))
	}
	return buf
}

func TestRMSSilence(t *testing.T) {
	if got := RMS(pcmChunk(0, 128)); got != 0 {
		t.Errorf("silence RMS = %f, want 0", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("empty RMS = %f, want 0", got)
	}
}

func TestRMSConstantSignal(t *testing.T) {
	// A constant-amplitude signal has RMS equal to that amplitude
	got := RMS(pcmChunk(16384, 64))
	want := 16384.0 / 32768.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("RMS = %f, want %f", got, want)
	}
}

func TestHistoryEviction(t *testing.T) {
	m := NewMonitor(4)
	for i := 0; i < 10; i++ {
		m.Observe(pcmChunk(int16(1000*(i+1)), 8))
	}
	bars := m.Bars()
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars, got %d", len(bars))
	}
	// Oldest evicted: the surviving bars are from the last 4 chunks,
	// strictly increasing amplitude
	for i := 1; i < len(bars); i++ {
		if bars[i] <= bars[i-1] {
			t.Errorf("bars not scrolling: %v", bars)
		}
	}
}

func TestResetClearsHistory(t *testing.T) {
	m := NewMonitor(0)
	m.Observe(pcmChunk(500, 8))
	m.Reset()
	if len(m.Bars()) != 0 {
		t.Error("history survived reset")
	}
}
