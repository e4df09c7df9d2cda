package app

import (
	"context"
	"sync"

	"intervox/domain/recording"
	"intervox/internal"
	"intervox/internal/errors"
	"intervox/models"
	"intervox/ports"
)

// PipelineState is the linear user-facing processing state for one
// question, layered on top of the capture session's own states.
type PipelineState string

const (
	PipelineIdle       PipelineState = "idle"
	PipelineRecording  PipelineState = "recording"
	PipelineStopped    PipelineState = "stopped"
	PipelineProcessing PipelineState = "processing"
	PipelineCompleted  PipelineState = "completed"
	PipelineFailed     PipelineState = "failed"
)

// AnswerResult is the terminal output of one question's pipeline run
type AnswerResult struct {
	Question             models.Question
	Transcription        models.TranscriptionResult
	Analysis             *models.AnswerAnalysis
	AudioDurationSeconds int
}

// PipelineService drives one question's answer through capture,
// transcription and analysis. Analysis is only ever attempted on a
// successful transcription, and because the analyzer never fails, a
// successful transcription always reaches completed.
//
// The service holds no state beyond the current question's in-flight
// results; the linear state machine also guarantees that no two
// transcription calls for the same question overlap (processing cannot
// be re-entered from processing).
type PipelineService struct {
	recorder    ports.Recorder
	transcriber ports.Transcriber
	analyzer    ports.Analyzer
	logger      *internal.Logger

	mu        sync.Mutex
	question  models.Question
	state     PipelineState
	lastError string
	attached  *recording.Artifact
	attachedS int
	emitted   bool
	sttOpts   ports.TranscribeOptions
}

// NewPipelineService creates a pipeline for live microphone capture.
// The recorder may be nil when artifacts arrive pre-recorded (see
// AttachArtifact), as with uploads from a browser recorder.
func NewPipelineService(recorder ports.Recorder, transcriber ports.Transcriber, analyzer ports.Analyzer, logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PipelineService{
		recorder:    recorder,
		transcriber: transcriber,
		analyzer:    analyzer,
		logger:      logger,
		state:       PipelineIdle,
	}
}

// SetTranscribeOptions sets the language and temperature hints passed to
// the transcriber on every attempt
func (s *PipelineService) SetTranscribeOptions(opts ports.TranscribeOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sttOpts = opts
}

// BeginQuestion resets the pipeline for a new question attempt
func (s *PipelineService) BeginQuestion(q models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = q
	s.state = PipelineIdle
	s.lastError = ""
	s.attached = nil
	s.attachedS = 0
	s.emitted = false
	if s.recorder != nil {
		s.recorder.Session().Reset()
	}
}

// State returns the current user-facing pipeline state
func (s *PipelineService) State() PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the human-readable message of the last failure
func (s *PipelineService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// StartRecording begins microphone capture for the current question.
// Valid from idle, or from failed when the user re-records after a
// transcription failure.
func (s *PipelineService) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.state != PipelineIdle && s.state != PipelineFailed {
		state := s.state
		s.mu.Unlock()
		return errors.InvalidInput("cannot start recording while " + string(state))
	}
	if s.recorder == nil {
		s.mu.Unlock()
		return errors.InvalidInput("no recorder configured")
	}
	s.mu.Unlock()

	if err := s.recorder.StartRecording(ctx); err != nil {
		return err
	}
	s.setState(PipelineRecording)
	return nil
}

// TogglePause pauses or resumes an in-progress recording
func (s *PipelineService) TogglePause() error {
	if s.recorder == nil {
		return errors.InvalidInput("no recorder configured")
	}
	return s.recorder.TogglePause()
}

// StopRecording finalizes the audio artifact
func (s *PipelineService) StopRecording() error {
	if s.recorder == nil {
		return errors.InvalidInput("no recorder configured")
	}
	if err := s.recorder.StopRecording(); err != nil {
		return err
	}
	s.setState(PipelineStopped)
	return nil
}

// AttachArtifact accepts a pre-recorded artifact in place of live
// capture, moving the pipeline straight to stopped
func (s *PipelineService) AttachArtifact(artifact recording.Artifact, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != PipelineIdle && s.state != PipelineFailed {
		return errors.InvalidInput("cannot attach artifact while " + string(s.state))
	}
	if artifact.Size() == 0 {
		return errors.InvalidInput("empty audio artifact")
	}
	s.attached = &artifact
	s.attachedS = durationSeconds
	s.state = PipelineStopped
	return nil
}

// ProcessAnswer runs transcription then analysis on the stopped
// recording. On transcription failure the pipeline enters the failed
// branch, the artifact is discarded and the user must re-record; analysis
// failure is absorbed by the analyzer and never blocks completion. The
// terminal result is emitted exactly once per attempt.
func (s *PipelineService) ProcessAnswer(ctx context.Context) (*AnswerResult, error) {
	s.mu.Lock()
	if s.state != PipelineStopped {
		state := s.state
		s.mu.Unlock()
		return nil, errors.InvalidInput("cannot process answer while " + string(state))
	}
	if s.emitted {
		s.mu.Unlock()
		return nil, errors.InvalidInput("answer already emitted for this question")
	}

	artifact, durationSeconds := s.attached, s.attachedS
	if artifact == nil && s.recorder != nil {
		artifact = s.recorder.Session().Artifact()
		durationSeconds = s.recorder.Session().Elapsed()
	}
	question := s.question
	sttOpts := s.sttOpts
	s.state = PipelineProcessing
	s.mu.Unlock()

	if artifact == nil {
		s.setState(PipelineFailed)
		return nil, errors.InvalidInput("no audio artifact to process")
	}
	if s.recorder != nil && s.attachedArtifact() == nil {
		if err := s.recorder.Session().BeginProcessing(); err != nil {
			s.setState(PipelineFailed)
			return nil, err
		}
	}

	s.logger.Info("[Pipeline] processing answer for question %s (%ds of audio)", question.ID, durationSeconds)
	transcription := s.transcriber.Transcribe(ctx, *artifact, sttOpts)

	if !transcription.Success {
		s.logger.Warn("[Pipeline] transcription failed: %s", transcription.Error)
		s.mu.Lock()
		s.state = PipelineFailed
		s.lastError = transcription.Error
		s.attached = nil
		s.mu.Unlock()
		if s.recorder != nil {
			// Discard the artifact; the user re-records to retry
			s.recorder.Session().Reset()
		}
		return nil, errors.TranscriptionError(transcription.Error)
	}

	// The analyzer's contract guarantees a valid analysis even when the
	// scoring provider is down, so completion is unconditional from here.
	analysis := s.analyzer.Analyze(ctx, ports.AnalyzeRequest{
		Transcript:           transcription.Transcript,
		Question:             question,
		AudioDurationSeconds: durationSeconds,
		TranscriptionConf:    transcription.Confidence,
	})

	if s.recorder != nil && s.attachedArtifact() == nil {
		_ = s.recorder.Session().Complete()
	}

	s.mu.Lock()
	s.state = PipelineCompleted
	s.emitted = true
	s.mu.Unlock()

	s.logger.Info("[Pipeline] answer completed for question %s: score %d", question.ID, analysis.OverallScore)
	return &AnswerResult{
		Question:             question,
		Transcription:        transcription,
		Analysis:             analysis,
		AudioDurationSeconds: durationSeconds,
	}, nil
}

// Teardown defensively releases capture resources; results of any
// abandoned in-flight network call are discarded by the caller
func (s *PipelineService) Teardown() {
	if s.recorder != nil {
		s.recorder.Teardown()
	}
	s.mu.Lock()
	s.state = PipelineIdle
	s.attached = nil
	s.emitted = false
	s.mu.Unlock()
}

func (s *PipelineService) setState(state PipelineState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *PipelineService) attachedArtifact() *recording.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}
