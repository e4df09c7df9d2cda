package recording

import (
	"bytes"
	"testing"
)

func artifactStates() map[State]bool {
	// States in which the artifact must be non-nil
	return map[State]bool{
		StateIdle:       false,
		StateRecording:  false,
		StatePaused:     false,
		StateStopped:    true,
		StateProcessing: true,
		StateCompleted:  true,
	}
}

func checkArtifactInvariant(t *testing.T, s *Session) {
	t.Helper()
	want := artifactStates()[s.State()]
	got := s.Artifact() != nil
	if got != want {
		t.Errorf("artifact invariant violated in state %s: artifact non-nil = %v", s.State(), got)
	}
}

func TestManualStopKeepsElapsedAndArtifact(t *testing.T) {
	s := NewSession(Config{MaxDurationSeconds: 300, AutoStop: true})
	checkArtifactInvariant(t, s)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	checkArtifactInvariant(t, s)

	for i := 0; i < 45; i++ {
		s.AppendChunk([]byte{byte(i)})
		if stopped := s.Tick(); stopped {
			t.Fatalf("unexpected auto-stop at tick %d", i+1)
		}
	}
	if s.Elapsed() != 45 {
		t.Errorf("expected elapsed 45, got %d", s.Elapsed())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.State() != StateStopped {
		t.Errorf("expected stopped, got %s", s.State())
	}
	if s.Elapsed() != 45 {
		t.Errorf("elapsed changed on stop: %d", s.Elapsed())
	}
	checkArtifactInvariant(t, s)

	art := s.Artifact()
	if art.Size() != 45 {
		t.Errorf("expected 45-byte artifact, got %d", art.Size())
	}
}

func TestAutoStopCeilingIsExact(t *testing.T) {
	s := NewSession(Config{MaxDurationSeconds: 300, AutoStop: true})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.AppendChunk([]byte("audio"))

	stoppedAt := 0
	for i := 1; i <= 400; i++ {
		if s.Tick() {
			stoppedAt = i
			break
		}
	}
	if stoppedAt != 300 {
		t.Fatalf("expected auto-stop on tick 300, got %d", stoppedAt)
	}
	if s.Elapsed() != 300 {
		t.Errorf("elapsed must equal max exactly, got %d", s.Elapsed())
	}
	if s.State() != StateStopped {
		t.Errorf("expected stopped after auto-stop, got %s", s.State())
	}
	checkArtifactInvariant(t, s)

	// Further ticks after auto-stop must not advance the clock
	if s.Tick() {
		t.Error("Tick after stop reported auto-stop again")
	}
	if s.Elapsed() != 300 {
		t.Errorf("elapsed advanced after stop: %d", s.Elapsed())
	}
}

func TestAutoStopDisabledExceedsMax(t *testing.T) {
	s := NewSession(Config{MaxDurationSeconds: 10, AutoStop: false})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 25; i++ {
		if s.Tick() {
			t.Fatal("auto-stop fired while disabled")
		}
	}
	if s.Elapsed() != 25 {
		t.Errorf("expected elapsed 25, got %d", s.Elapsed())
	}
}

func TestPauseFreezesClockAndChunks(t *testing.T) {
	s := NewSession(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.AppendChunk([]byte("one"))
	s.Tick()

	state, err := s.TogglePause()
	if err != nil || state != StatePaused {
		t.Fatalf("expected paused, got %s err=%v", state, err)
	}

	// Neither the clock nor the chunk buffer advances while paused
	s.Tick()
	s.Tick()
	s.AppendChunk([]byte("dropped"))
	if s.Elapsed() != 1 {
		t.Errorf("clock advanced while paused: %d", s.Elapsed())
	}

	state, err = s.TogglePause()
	if err != nil || state != StateRecording {
		t.Fatalf("expected recording after resume, got %s err=%v", state, err)
	}
	s.Tick()
	if s.Elapsed() != 2 {
		t.Errorf("expected elapsed 2 after resume tick, got %d", s.Elapsed())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !bytes.Equal(s.Artifact().Data, []byte("one")) {
		t.Errorf("paused chunk leaked into artifact: %q", s.Artifact().Data)
	}
}

func TestStopFromPaused(t *testing.T) {
	s := NewSession(Config{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.AppendChunk([]byte("x"))
	if _, err := s.TogglePause(); err != nil {
		t.Fatalf("TogglePause failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop from paused failed: %v", err)
	}
	checkArtifactInvariant(t, s)
}

func TestProcessingLifecycle(t *testing.T) {
	s := NewSession(Config{})
	if err := s.BeginProcessing(); err == nil {
		t.Error("BeginProcessing from idle should fail")
	}

	s.Start()
	s.AppendChunk([]byte("x"))
	s.Stop()

	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing failed: %v", err)
	}
	checkArtifactInvariant(t, s)

	// Cannot re-enter processing from processing
	if err := s.BeginProcessing(); err == nil {
		t.Error("re-entering processing should fail")
	}

	if err := s.Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if s.State() != StateCompleted {
		t.Errorf("expected completed, got %s", s.State())
	}
	checkArtifactInvariant(t, s)
}

func TestAbandonReturnsToStopped(t *testing.T) {
	s := NewSession(Config{})
	s.Start()
	s.AppendChunk([]byte("x"))
	s.Stop()
	s.BeginProcessing()

	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if s.State() != StateStopped {
		t.Errorf("expected stopped after abandon, got %s", s.State())
	}
	checkArtifactInvariant(t, s)
}

func TestResetReleasesEverything(t *testing.T) {
	s := NewSession(Config{})
	s.Start()
	s.AppendChunk([]byte("x"))
	s.Stop()

	s.Reset()
	if s.State() != StateIdle {
		t.Errorf("expected idle after reset, got %s", s.State())
	}
	if s.Artifact() != nil {
		t.Error("artifact retained after reset")
	}
	if s.Elapsed() != 0 {
		t.Errorf("elapsed retained after reset: %d", s.Elapsed())
	}
	if s.LatestChunk() != nil {
		t.Error("latest chunk retained after reset")
	}
	checkArtifactInvariant(t, s)

	// Reset is a safety net: valid from any state, including idle
	s.Reset()
	if s.State() != StateIdle {
		t.Errorf("expected idle, got %s", s.State())
	}
}

func TestInvalidTransitions(t *testing.T) {
	s := NewSession(Config{})

	if err := s.Stop(); err == nil {
		t.Error("Stop from idle should fail")
	}
	if _, err := s.TogglePause(); err == nil {
		t.Error("TogglePause from idle should fail")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Start while recording should fail")
	}
}
