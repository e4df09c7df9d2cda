package recording

import (
	"fmt"
	"sync"
)

// State is the capture lifecycle state of one recording attempt
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StatePaused     State = "paused"
	StateStopped    State = "stopped"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
)

// DefaultMaxDurationSeconds caps a recording attempt when auto-stop is enabled
const DefaultMaxDurationSeconds = 300

// Artifact is the finalized binary recording produced when capture stops
type Artifact struct {
	Data     []byte
	MIMEType string
}

// Size returns the artifact payload size in bytes
func (a Artifact) Size() int {
	return len(a.Data)
}

// Config controls a recording session
type Config struct {
	MaxDurationSeconds int
	AutoStop           bool
	MIMEType           string
}

// TransitionError reports an operation attempted in the wrong state
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// Session is the explicit state machine behind one microphone recording.
// Platform event callbacks (data available, stream stop, clock ticks) are
// reduced to thin adapters that invoke these transition methods, so the
// machine is testable without a real microphone.
//
// Invariant: the artifact is non-nil exactly in states stopped, processing
// and completed.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	elapsed  int
	chunks   [][]byte
	latest   []byte
	artifact *Artifact
}

// NewSession creates an idle recording session
func NewSession(cfg Config) *Session {
	if cfg.MaxDurationSeconds <= 0 {
		cfg.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if cfg.MIMEType == "" {
		cfg.MIMEType = "audio/webm"
	}
	return &Session{cfg: cfg, state: StateIdle}
}

// Start transitions idle -> recording. The caller acquires the microphone
// before invoking this; an acquisition failure means Start is never called
// and the session stays idle.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return &TransitionError{Op: "start", State: s.state}
	}
	s.state = StateRecording
	s.elapsed = 0
	s.chunks = nil
	s.latest = nil
	s.artifact = nil
	return nil
}

// AppendChunk buffers one captured audio chunk. Chunks arriving while the
// session is not recording are dropped, matching paused stream capture.
func (s *Session) AppendChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.chunks = append(s.chunks, buf)
	s.latest = buf
}

// TogglePause flips recording <-> paused. The elapsed clock and chunk
// intake pause in lockstep because Tick and AppendChunk both no-op
// outside the recording state.
func (s *Session) TogglePause() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRecording:
		s.state = StatePaused
	case StatePaused:
		s.state = StateRecording
	default:
		return s.state, &TransitionError{Op: "toggle pause", State: s.state}
	}
	return s.state, nil
}

// Tick advances the elapsed clock by one second while recording. It
// returns true when the about-to-be-set value reaches the configured
// maximum and auto-stop is enabled; in that case the session has already
// transitioned to stopped, so the stored elapsed time never exceeds the
// maximum even if the caller's stop side effects are asynchronous.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return false
	}
	next := s.elapsed + 1
	if s.cfg.AutoStop && next >= s.cfg.MaxDurationSeconds {
		s.elapsed = s.cfg.MaxDurationSeconds
		s.finalizeLocked()
		return true
	}
	s.elapsed = next
	return false
}

// Stop transitions recording|paused -> stopped and finalizes the artifact
// from all captured chunks. The microphone handle is released by the
// caller; the artifact is retained.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording && s.state != StatePaused {
		return &TransitionError{Op: "stop", State: s.state}
	}
	s.finalizeLocked()
	return nil
}

// BeginProcessing transitions stopped -> processing. Calling it without a
// finalized artifact is a programming error, not a user-facing one.
func (s *Session) BeginProcessing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return &TransitionError{Op: "begin processing", State: s.state}
	}
	if s.artifact == nil {
		return fmt.Errorf("begin processing: artifact missing in stopped state")
	}
	s.state = StateProcessing
	return nil
}

// Complete transitions processing -> completed once transcription and
// analysis have both resolved. Capture has no further responsibility.
func (s *Session) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProcessing {
		return &TransitionError{Op: "complete", State: s.state}
	}
	s.state = StateCompleted
	return nil
}

// Abandon returns a processing session to stopped after a terminal
// transcription failure, keeping retry possible.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProcessing {
		return &TransitionError{Op: "abandon", State: s.state}
	}
	s.state = StateStopped
	return nil
}

// Reset releases the artifact and all buffered chunks and returns to idle.
// It is valid from any state so teardown can use it as a safety net.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.elapsed = 0
	s.chunks = nil
	s.latest = nil
	s.artifact = nil
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the elapsed recording time in seconds
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Artifact returns the finalized recording, or nil before capture stopped
func (s *Session) Artifact() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// LatestChunk returns the most recently captured chunk for observers such
// as the waveform monitor. Nil outside an active attempt.
func (s *Session) LatestChunk() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Session) finalizeLocked() {
	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range s.chunks {
		data = append(data, c...)
	}
	s.artifact = &Artifact{Data: data, MIMEType: s.cfg.MIMEType}
	s.chunks = nil
	s.state = StateStopped
}
