package workflow

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"revoice/internal/gateway"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/session"
	"revoice/internal/subtitles"
)

// Manager runs stage operations. Each operation checks gating against the
// committed session, marks the stage in-flight, performs the single gateway
// call, and commits the result to the store only on success. A failed call
// leaves the session untouched and the stage back at ready.
type Manager struct {
	store  *session.Store
	proc   gateway.Processor
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[Stage]struct{}
}

// NewManager wires the store and the processing gateway.
func NewManager(store *session.Store, proc gateway.Processor, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		proc:     proc,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		inflight: make(map[Stage]struct{}),
	}
}

// Status projects the current pipeline state.
func (m *Manager) Status() Summary {
	m.mu.Lock()
	inflight := make(map[Stage]struct{}, len(m.inflight))
	for stage := range m.inflight {
		inflight[stage] = struct{}{}
	}
	m.mu.Unlock()
	return Project(m.store.Snapshot(), inflight)
}

// Session returns a deep snapshot of the active session, or nil before the
// first upload.
func (m *Manager) Session() *session.Session {
	return m.store.Snapshot()
}

// SubtitlePreview renders an SRT document locally from the current sentence
// timing, without calling the processing service.
func (m *Manager) SubtitlePreview() (string, error) {
	sess := m.store.Snapshot()
	if sess == nil || !sess.HasSentences() {
		return "", services.Wrap(services.ErrValidation, string(StageSubtitle), "preview", "no sentences to preview", nil)
	}
	return subtitles.Preview(sess.Sentences), nil
}

// begin claims the stage for one operation. It rejects a second trigger of
// an in-flight stage with a conflict and a locked stage with a validation
// error. Done stages may be re-run; the downstream reset is applied by the
// store on commit.
func (m *Manager) begin(stage Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[stage]; busy {
		return services.Wrap(services.ErrConflict, string(stage), "begin", "stage already in progress", nil)
	}
	switch stageStatus(m.store.Snapshot(), stage, nil) {
	case StatusReady, StatusDone:
	default:
		return services.Wrap(services.ErrValidation, string(stage), "begin", "stage is locked: complete "+string(stage.Predecessor())+" first", nil)
	}
	m.inflight[stage] = struct{}{}
	return nil
}

func (m *Manager) finish(stage Stage) {
	m.mu.Lock()
	delete(m.inflight, stage)
	m.mu.Unlock()
}

// run wraps one stage operation with gating, in-flight tracking, request id
// tagging, and start/complete logging. The session snapshot handed to op is
// taken after begin, so it is non-nil for every stage except Upload, whose
// gate does not require a session; the guard keeps that invariant local.
func (m *Manager) run(ctx context.Context, stage Stage, op func(context.Context, *session.Session) error) error {
	if err := m.begin(stage); err != nil {
		return err
	}
	defer m.finish(stage)

	sess := m.store.Snapshot()
	if sess == nil && stage != StageUpload {
		return services.Wrap(services.ErrValidation, string(stage), "begin", "no active session", nil)
	}

	ctx = services.WithStage(ctx, string(stage))
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	if err := op(ctx, sess); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Error(err),
			logging.Duration("elapsed", time.Since(start)),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Upload starts a new run from a source audio file. Any previous session is
// replaced wholesale.
func (m *Manager) Upload(ctx context.Context, fileName string, content io.Reader) error {
	if strings.TrimSpace(fileName) == "" {
		return services.Wrap(services.ErrValidation, string(StageUpload), "validate", "file name required", nil)
	}
	if content == nil {
		return services.Wrap(services.ErrValidation, string(StageUpload), "validate", "file content required", nil)
	}
	return m.run(ctx, StageUpload, func(ctx context.Context, _ *session.Session) error {
		result, err := m.proc.Upload(ctx, gateway.UploadRequest{FileName: fileName, Content: content})
		if err != nil {
			return err
		}
		m.store.ReplaceUpload(result.Processed)
		return nil
	})
}

// Recognize transcribes the uploaded audio and commits the transcript,
// clearing any sentence, clone, merge, or subtitle artifacts from a prior
// run of the downstream stages.
func (m *Manager) Recognize(ctx context.Context) error {
	return m.run(ctx, StageRecognize, func(ctx context.Context, sess *session.Session) error {
		result, err := m.proc.Recognize(ctx, gateway.RecognizeRequest{Audio: sess.UploadedAudio})
		if err != nil {
			return err
		}
		return m.store.SetTranscript(result.Text, result.Transcript)
	})
}

// Split cuts the audio into per-sentence clips.
func (m *Manager) Split(ctx context.Context) error {
	return m.run(ctx, StageSplit, func(ctx context.Context, sess *session.Session) error {
		result, err := m.proc.Split(ctx, gateway.SplitRequest{
			Audio:      sess.UploadedAudio,
			Transcript: sess.TranscriptFile,
		})
		if err != nil {
			return err
		}
		if len(result.Sentences) == 0 {
			return services.Wrap(services.ErrExternalCall, string(StageSplit), "commit", "processing service returned no sentences", nil)
		}
		return m.store.SetSentences(result.Sentences)
	})
}

// SubmitEdits pushes edited sentence texts to the processing service and
// commits them locally. Edits naming unknown sentence ids are ignored.
func (m *Manager) SubmitEdits(ctx context.Context, edits []session.SentenceEdit) error {
	if len(edits) == 0 {
		return services.Wrap(services.ErrValidation, string(StageSubmitEdits), "validate", "no edits submitted", nil)
	}
	return m.run(ctx, StageSubmitEdits, func(ctx context.Context, sess *session.Session) error {
		updated := applyEdits(sess.Sentences, edits)
		if err := m.proc.UpdateTranscription(ctx, gateway.UpdateTranscriptionRequest{Sentences: updated}); err != nil {
			return err
		}
		return m.store.UpdateSentenceTexts(edits)
	})
}

// UploadReference stores the reference voice sample used for cloning.
func (m *Manager) UploadReference(ctx context.Context, fileName string, content io.Reader, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, string(StageReferenceUpload), "validate", "reference text required", nil)
	}
	if content == nil {
		return services.Wrap(services.ErrValidation, string(StageReferenceUpload), "validate", "file content required", nil)
	}
	return m.run(ctx, StageReferenceUpload, func(ctx context.Context, _ *session.Session) error {
		result, err := m.proc.UploadReference(ctx, gateway.ReferenceRequest{FileName: fileName, Content: content, Text: text})
		if err != nil {
			return err
		}
		return m.store.SetReferenceVoice(result.Voice)
	})
}

// Clone generates voice-cloned audio for every sentence against the
// reference voice.
func (m *Manager) Clone(ctx context.Context) error {
	return m.run(ctx, StageClone, func(ctx context.Context, sess *session.Session) error {
		if !sess.HasSentences() {
			return services.Wrap(services.ErrValidation, string(StageClone), "validate", "no sentences to clone", nil)
		}
		result, err := m.proc.Clone(ctx, gateway.CloneRequest{Reference: sess.Reference, Sentences: sess.Sentences})
		if err != nil {
			return err
		}
		return m.store.SetClonedAudios(result.Clones)
	})
}

// Merge concatenates the cloned clips in sentence order.
func (m *Manager) Merge(ctx context.Context) error {
	return m.run(ctx, StageMerge, func(ctx context.Context, sess *session.Session) error {
		result, err := m.proc.Merge(ctx, gateway.MergeRequest{Clones: sess.OrderedClones()})
		if err != nil {
			return err
		}
		return m.store.SetMergedAudio(result.Audio)
	})
}

// Subtitle asks the processing service for the final SRT file.
func (m *Manager) Subtitle(ctx context.Context) error {
	return m.run(ctx, StageSubtitle, func(ctx context.Context, sess *session.Session) error {
		result, err := m.proc.GenerateSubtitles(ctx, gateway.SubtitleRequest{Sentences: sess.Sentences})
		if err != nil {
			return err
		}
		return m.store.SetSubtitleFile(result.File)
	})
}

// applyEdits returns a copy of sentences with the edit texts applied.
// Unknown ids are dropped, matching the store's commit behavior.
func applyEdits(sentences []session.Sentence, edits []session.SentenceEdit) []session.Sentence {
	byID := make(map[int64]string, len(edits))
	for _, e := range edits {
		byID[e.ID] = e.Text
	}
	out := make([]session.Sentence, len(sentences))
	copy(out, sentences)
	for i := range out {
		if text, ok := byID[out[i].ID]; ok {
			out[i].Text = text
		}
	}
	return out
}
