// Package api defines the JSON views served by the daemon's operator API and
// a small client the CLI uses to read them.
package api

import (
	"time"

	"revoice/internal/session"
	"revoice/internal/workflow"
)

// ArtifactView is the wire form of a stored artifact reference.
type ArtifactView struct {
	LocalURL string `json:"local_url,omitempty"`
	OSSURL   string `json:"oss_url,omitempty"`
}

func newArtifactView(ref session.ArtifactRef) ArtifactView {
	return ArtifactView{LocalURL: ref.LocalPath, OSSURL: ref.RemoteURL}
}

func artifactViewPtr(ref session.ArtifactRef) *ArtifactView {
	if ref.IsZero() {
		return nil
	}
	v := newArtifactView(ref)
	return &v
}

// SentenceView is one sentence with its timing and clip.
type SentenceView struct {
	ID        int64        `json:"sentence_id"`
	Text      string       `json:"text"`
	BeginTime int64        `json:"begin_time"`
	EndTime   int64        `json:"end_time"`
	Audio     ArtifactView `json:"audio"`
}

// CloneView is one cloned clip keyed by its sentence.
type CloneView struct {
	SentenceID int64        `json:"sentence_id"`
	Text       string       `json:"text"`
	BeginTime  int64        `json:"begin_time"`
	EndTime    int64        `json:"end_time"`
	Audio      ArtifactView `json:"audio"`
}

// ReferenceView is the stored reference voice.
type ReferenceView struct {
	Text  string       `json:"text"`
	Audio ArtifactView `json:"audio"`
}

// SessionView is the full projection of the active session.
type SessionView struct {
	ID             string         `json:"session_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UploadedAudio  *ArtifactView  `json:"uploaded_audio,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	Sentences      []SentenceView `json:"sentences,omitempty"`
	EditsSubmitted bool           `json:"edits_submitted"`
	Reference      *ReferenceView `json:"reference,omitempty"`
	ClonedAudios   []CloneView    `json:"cloned_audios,omitempty"`
	MergedAudio    *ArtifactView  `json:"merged_audio,omitempty"`
	SubtitleFile   *ArtifactView  `json:"subtitle_file,omitempty"`
}

// NewSessionView projects a session snapshot, or nil before the first
// upload.
func NewSessionView(sess *session.Session) *SessionView {
	if sess == nil {
		return nil
	}
	view := &SessionView{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		UploadedAudio:  artifactViewPtr(sess.UploadedAudio),
		Transcript:     sess.Transcript,
		EditsSubmitted: sess.EditsSubmitted,
		MergedAudio:    artifactViewPtr(sess.MergedAudio),
		SubtitleFile:   artifactViewPtr(sess.SubtitleFile),
	}
	for _, s := range sess.Sentences {
		view.Sentences = append(view.Sentences, SentenceView{
			ID:        s.ID,
			Text:      s.Text,
			BeginTime: s.BeginMS,
			EndTime:   s.EndMS,
			Audio:     newArtifactView(s.Audio),
		})
	}
	if sess.HasReference() {
		view.Reference = &ReferenceView{
			Text:  sess.Reference.Text,
			Audio: newArtifactView(sess.Reference.Audio),
		}
	}
	for _, c := range sess.OrderedClones() {
		view.ClonedAudios = append(view.ClonedAudios, CloneView{
			SentenceID: c.SentenceID,
			Text:       c.Text,
			BeginTime:  c.BeginMS,
			EndTime:    c.EndMS,
			Audio:      newArtifactView(c.Audio),
		})
	}
	return view
}

// StageView is one pipeline stage with its display label and status.
type StageView struct {
	Stage  string `json:"stage"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// DaemonInfo describes the serving daemon.
type DaemonInfo struct {
	PID     int    `json:"pid"`
	Version string `json:"version,omitempty"`
}

// StatusResponse is the per-stage pipeline view plus the triggerable
// actions.
type StatusResponse struct {
	SessionID string      `json:"session_id,omitempty"`
	Stages    []StageView `json:"stages"`
	Unlocked  []string    `json:"unlocked_actions"`
	Daemon    DaemonInfo  `json:"daemon"`
}

// NewStatusResponse projects a workflow summary.
func NewStatusResponse(summary workflow.Summary, daemon DaemonInfo) StatusResponse {
	resp := StatusResponse{
		SessionID: summary.SessionID,
		Stages:    make([]StageView, 0, len(summary.Stages)),
		Unlocked:  make([]string, 0, len(summary.Unlocked)),
		Daemon:    daemon,
	}
	for _, st := range summary.Stages {
		resp.Stages = append(resp.Stages, StageView{
			Stage:  string(st.Stage),
			Label:  st.Stage.Label(),
			Status: string(st.Status),
		})
	}
	for _, stage := range summary.Unlocked {
		resp.Unlocked = append(resp.Unlocked, string(stage))
	}
	return resp
}

// ErrorPayload is the error body for every non-2xx API response.
type ErrorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
