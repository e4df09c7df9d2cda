package capture

import (
	"context"
	"sync"
	"time"

	"intervox/domain/recording"
	"intervox/internal"
	"intervox/internal/errors"
	"intervox/ports"

	"golang.org/x/sync/semaphore"
)

// Recorder owns the runtime side of one recording session: the microphone
// stream, the one-second elapsed clock and the chunk read loop. All state
// decisions live in the recording.Session state machine; the recorder is
// the thin adapter that feeds it platform events.
type Recorder struct {
	capture ports.AudioCapture
	cfg     ports.CaptureConfig
	session *recording.Session
	logger  *internal.Logger

	// The microphone is an exclusive resource; the semaphore guards against
	// acquiring a second stream while one is unreleased.
	mic *semaphore.Weighted

	mu         sync.Mutex
	micHeld    bool
	stream     ports.CaptureStream
	ticker     *time.Ticker
	tickerDone chan struct{}
	onChunk    func([]byte)
	onAutoStop func()
}

// NewRecorder creates a recorder around an idle recording session
func NewRecorder(capture ports.AudioCapture, cfg ports.CaptureConfig, session *recording.Session, logger *internal.Logger) *Recorder {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Recorder{
		capture: capture,
		cfg:     cfg,
		session: session,
		logger:  logger,
		mic:     semaphore.NewWeighted(1),
	}
}

// SetChunkObserver registers a per-chunk callback used by the waveform
// monitor. Chunks are only delivered while the session is recording.
func (r *Recorder) SetChunkObserver(fn func([]byte)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChunk = fn
}

// SetAutoStopHandler registers a callback fired when the elapsed clock
// reaches the configured maximum and capture stops autonomously
func (r *Recorder) SetAutoStopHandler(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAutoStop = fn
}

// Session exposes the underlying state machine
func (r *Recorder) Session() *recording.Session {
	return r.session
}

// StartRecording acquires the microphone and transitions the session to
// recording. Acquisition failure is terminal for the attempt: the session
// stays idle and the caller must invoke StartRecording again to retry.
func (r *Recorder) StartRecording(ctx context.Context) error {
	if !r.mic.TryAcquire(1) {
		return errors.CaptureError("microphone is already in use", nil)
	}

	stream, err := r.capture.Start(ctx, r.cfg)
	if err != nil {
		r.mic.Release(1)
		r.logger.Error("[Recorder] microphone acquisition failed: %v", err)
		return errors.CaptureError("could not access microphone", err)
	}

	if err := r.session.Start(); err != nil {
		_ = stream.Stop()
		r.mic.Release(1)
		return err
	}

	r.mu.Lock()
	r.micHeld = true
	r.stream = stream
	r.startClockLocked()
	r.mu.Unlock()

	go r.readLoop(stream)

	r.logger.Info("[Recorder] recording started (%d Hz, %d ch)", r.cfg.SampleRate, r.cfg.Channels)
	return nil
}

// TogglePause pauses or resumes capture and the elapsed clock in lockstep.
// The clock freezes because Session.Tick no-ops outside the recording
// state; chunks read while paused are dropped by the state machine.
func (r *Recorder) TogglePause() error {
	state, err := r.session.TogglePause()
	if err != nil {
		return err
	}
	r.logger.Debug("[Recorder] state toggled to %s", state)
	return nil
}

// StopRecording finalizes the artifact and releases the microphone. A stop
// request with no active recorder is a no-op, not an error.
func (r *Recorder) StopRecording() error {
	r.mu.Lock()
	if r.stream == nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.session.Stop(); err != nil {
		// The clock may already have auto-stopped the session; releasing
		// hardware is still required.
		r.logger.Debug("[Recorder] stop transition skipped: %v", err)
	}
	r.releaseHardware()
	r.logger.Info("[Recorder] recording stopped at %ds", r.session.Elapsed())
	return nil
}

// Teardown is the unmount safety net: it stops any active stream, clears
// the clock and releases the artifact, regardless of current state.
func (r *Recorder) Teardown() {
	r.releaseHardware()
	r.session.Reset()
	r.logger.Debug("[Recorder] teardown complete")
}

// startClockLocked clears any previous ticker before creating a new one,
// so exactly one elapsed-time clock is ever active.
func (r *Recorder) startClockLocked() {
	r.stopClockLocked()
	r.ticker = time.NewTicker(time.Second)
	r.tickerDone = make(chan struct{})
	go r.tickLoop(r.ticker, r.tickerDone)
}

func (r *Recorder) stopClockLocked() {
	if r.ticker != nil {
		r.ticker.Stop()
		close(r.tickerDone)
		r.ticker = nil
		r.tickerDone = nil
	}
}

func (r *Recorder) tickLoop(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if r.session.Tick() {
				// Auto-stop: the state machine already froze the clock at the
				// maximum; release the hardware off the tick goroutine.
				r.logger.Info("[Recorder] max duration reached, auto-stopping")
				go r.handleAutoStop()
				return
			}
		}
	}
}

func (r *Recorder) handleAutoStop() {
	r.releaseHardware()
	r.mu.Lock()
	fn := r.onAutoStop
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *Recorder) readLoop(stream ports.CaptureStream) {
	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			r.session.AppendChunk(buf[:n])
			r.mu.Lock()
			fn := r.onChunk
			r.mu.Unlock()
			if fn != nil && r.session.State() == recording.StateRecording {
				fn(buf[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *Recorder) releaseHardware() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopClockLocked()
	if r.stream != nil {
		if err := r.stream.Stop(); err != nil {
			r.logger.Warn("[Recorder] stream did not stop cleanly: %v", err)
		}
		r.stream = nil
	}
	if r.micHeld {
		r.mic.Release(1)
		r.micHeld = false
	}
}
