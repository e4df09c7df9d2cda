package app

import (
	"context"
	"testing"

	"intervox/domain/recording"
	"intervox/internal/errors"
	"intervox/models"
	"intervox/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	result models.TranscriptionResult
	calls  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, artifact recording.Artifact, opts ports.TranscribeOptions) models.TranscriptionResult {
	f.calls++
	return f.result
}

type fakeAnalyzer struct {
	analysis *models.AnswerAnalysis
	calls    int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req ports.AnalyzeRequest) *models.AnswerAnalysis {
	f.calls++
	if f.analysis != nil {
		return f.analysis
	}
	return models.FallbackAnalysis(req.Transcript, req.AudioDurationSeconds, "provider down")
}

// fakeRecorder drives a real capture session without hardware
type fakeRecorder struct {
	session *recording.Session
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{session: recording.NewSession(recording.Config{
		MaxDurationSeconds: 300,
		AutoStop:           true,
		MIMEType:           "audio/webm",
	})}
}

func (f *fakeRecorder) StartRecording(ctx context.Context) error {
	if err := f.session.Start(); err != nil {
		return err
	}
	f.session.AppendChunk([]byte("pcm-data"))
	return nil
}

func (f *fakeRecorder) TogglePause() error {
	_, err := f.session.TogglePause()
	return err
}

func (f *fakeRecorder) StopRecording() error {
	return f.session.Stop()
}

func (f *fakeRecorder) Session() *recording.Session { return f.session }
func (f *fakeRecorder) Teardown()                   { f.session.Reset() }

func goodTranscription() models.TranscriptionResult {
	return models.TranscriptionResult{
		Transcript: "I restructured the team around two delivery squads.",
		Confidence: 0.8,
		Success:    true,
		WordCount:  8,
	}
}

func question() models.Question {
	return models.Question{ID: "q1", Text: "Tell me about a team you restructured.", Type: models.QuestionBehavioral}
}

func TestPipelineRecordedAnswerCompletes(t *testing.T) {
	tr := &fakeTranscriber{result: goodTranscription()}
	an := &fakeAnalyzer{analysis: &models.AnswerAnalysis{OverallScore: 75}}
	rec := newFakeRecorder()
	p := NewPipelineService(rec, tr, an, nil)

	p.BeginQuestion(question())
	require.NoError(t, p.StartRecording(context.Background()))
	assert.Equal(t, PipelineRecording, p.State())
	require.NoError(t, p.StopRecording())
	assert.Equal(t, PipelineStopped, p.State())

	res, err := p.ProcessAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PipelineCompleted, p.State())
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 1, an.calls)
	assert.Equal(t, "q1", res.Question.ID)
	assert.Equal(t, 75, res.Analysis.OverallScore)
	assert.Equal(t, recording.StateCompleted, rec.Session().State())
}

func TestPipelineTranscriptionFailureSkipsAnalysis(t *testing.T) {
	tr := &fakeTranscriber{result: models.TranscriptionResult{
		Success: false,
		Error:   "Network error during transcription. Check your connection and try again.",
	}}
	an := &fakeAnalyzer{}
	rec := newFakeRecorder()
	p := NewPipelineService(rec, tr, an, nil)

	p.BeginQuestion(question())
	require.NoError(t, p.StartRecording(context.Background()))
	require.NoError(t, p.StopRecording())

	res, err := p.ProcessAnswer(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "TRANSCRIPTION_ERROR", errors.GetCode(err))
	assert.Equal(t, 0, an.calls, "analysis must never run on a failed transcription")
	assert.Equal(t, PipelineFailed, p.State())
	assert.Contains(t, p.LastError(), "Network error")

	// The artifact is discarded and the user can record again
	assert.Nil(t, rec.Session().Artifact())
	require.NoError(t, p.StartRecording(context.Background()))
	assert.Equal(t, PipelineRecording, p.State())
}

func TestPipelineAnalyzerFallbackStillCompletes(t *testing.T) {
	tr := &fakeTranscriber{result: goodTranscription()}
	an := &fakeAnalyzer{} // yields the zero-score fallback
	rec := newFakeRecorder()
	p := NewPipelineService(rec, tr, an, nil)

	p.BeginQuestion(question())
	require.NoError(t, p.StartRecording(context.Background()))
	require.NoError(t, p.StopRecording())

	res, err := p.ProcessAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PipelineCompleted, p.State())
	assert.Equal(t, 0, res.Analysis.OverallScore)
	assert.NotNil(t, res.Analysis.Feedback.Strengths)
}

func TestPipelineResultEmittedOnce(t *testing.T) {
	tr := &fakeTranscriber{result: goodTranscription()}
	an := &fakeAnalyzer{}
	rec := newFakeRecorder()
	p := NewPipelineService(rec, tr, an, nil)

	p.BeginQuestion(question())
	require.NoError(t, p.StartRecording(context.Background()))
	require.NoError(t, p.StopRecording())
	_, err := p.ProcessAnswer(context.Background())
	require.NoError(t, err)

	// A second processing attempt for the same question is rejected
	_, err = p.ProcessAnswer(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, 1, an.calls)
}

func TestPipelineAttachedArtifactPath(t *testing.T) {
	tr := &fakeTranscriber{result: goodTranscription()}
	an := &fakeAnalyzer{analysis: &models.AnswerAnalysis{OverallScore: 60}}
	p := NewPipelineService(nil, tr, an, nil)

	p.BeginQuestion(question())
	err := p.AttachArtifact(recording.Artifact{Data: []byte("webm"), MIMEType: "audio/webm"}, 42)
	require.NoError(t, err)
	assert.Equal(t, PipelineStopped, p.State())

	res, err := p.ProcessAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, res.AudioDurationSeconds)
	assert.Equal(t, 60, res.Analysis.OverallScore)
}

func TestPipelineRejectsOutOfOrderOperations(t *testing.T) {
	tr := &fakeTranscriber{result: goodTranscription()}
	p := NewPipelineService(newFakeRecorder(), tr, &fakeAnalyzer{}, nil)
	p.BeginQuestion(question())

	// Processing before any recording
	_, err := p.ProcessAnswer(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, tr.calls)

	// Attaching an empty artifact
	err = p.AttachArtifact(recording.Artifact{}, 0)
	require.Error(t, err)

	// Starting twice
	require.NoError(t, p.StartRecording(context.Background()))
	err = p.StartRecording(context.Background())
	require.Error(t, err)
}

func TestPipelineBeginQuestionResetsFailedState(t *testing.T) {
	tr := &fakeTranscriber{result: models.TranscriptionResult{Success: false, Error: "boom"}}
	rec := newFakeRecorder()
	p := NewPipelineService(rec, tr, &fakeAnalyzer{}, nil)

	p.BeginQuestion(question())
	require.NoError(t, p.StartRecording(context.Background()))
	require.NoError(t, p.StopRecording())
	_, err := p.ProcessAnswer(context.Background())
	require.Error(t, err)
	assert.Equal(t, PipelineFailed, p.State())

	p.BeginQuestion(models.Question{ID: "q2", Text: "Next one."})
	assert.Equal(t, PipelineIdle, p.State())
	assert.Empty(t, p.LastError())
}
