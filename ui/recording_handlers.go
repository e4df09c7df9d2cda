package ui

import (
	"context"
	"net/http"

	"intervox/domain/recording"
	"intervox/internal/errors"
)

type recordingStatus struct {
	SessionState  string    `json:"sessionState"`
	PipelineState string    `json:"pipelineState"`
	Elapsed       int       `json:"elapsedSeconds"`
	Waveform      []float64 `json:"waveform,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
}

// handleRecordingStart begins server-side microphone capture for the
// current question and launches the amplitude monitor alongside it
func (a *App) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	rt, err := a.captureRuntime(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := rt.pipeline.StartRecording(r.Context()); err != nil {
		a.writeError(w, err)
		return
	}
	rt.monitor.Reset()
	go rt.monitor.Run(context.Background(), rt.recorder.Session(), 0)
	a.writeRecordingStatus(w, rt)
}

// handleRecordingPause toggles pause; on resume the monitor loop is
// relaunched since it exits whenever the session leaves the recording
// state
func (a *App) handleRecordingPause(w http.ResponseWriter, r *http.Request) {
	rt, err := a.captureRuntime(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := rt.pipeline.TogglePause(); err != nil {
		a.writeError(w, err)
		return
	}
	if rt.recorder.Session().State() == recording.StateRecording {
		go rt.monitor.Run(context.Background(), rt.recorder.Session(), 0)
	}
	a.writeRecordingStatus(w, rt)
}

// handleRecordingStop finalizes the artifact, runs the answer pipeline
// and advances the session. After a transcription failure the session
// stays on the current question for a re-record.
func (a *App) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	rt, err := a.captureRuntime(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := rt.pipeline.StopRecording(); err != nil {
		a.writeError(w, err)
		return
	}
	result, err := rt.pipeline.ProcessAnswer(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := rt.coordinator.SubmitAnswer(r.Context(), result); err != nil {
		a.writeError(w, err)
		return
	}
	a.advanceAndRespond(w, rt, result)
}

func (a *App) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	rt, err := a.captureRuntime(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeRecordingStatus(w, rt)
}

func (a *App) writeRecordingStatus(w http.ResponseWriter, rt *sessionRuntime) {
	session := rt.recorder.Session()
	a.writeJSON(w, http.StatusOK, recordingStatus{
		SessionState:  string(session.State()),
		PipelineState: string(rt.pipeline.State()),
		Elapsed:       session.Elapsed(),
		Waveform:      rt.monitor.Bars(),
		LastError:     rt.pipeline.LastError(),
	})
}

func (a *App) captureRuntime(r *http.Request) (*sessionRuntime, error) {
	rt, _, err := a.runtimeFromRequest(r)
	if err != nil {
		return nil, err
	}
	if rt.recorder == nil {
		return nil, errors.InvalidInput("server-side capture is not enabled")
	}
	return rt, nil
}
