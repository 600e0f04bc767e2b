// Package regen serializes per-sentence clone regeneration: at most one
// in-flight regeneration per sentence id, with distinct ids running
// concurrently.
package regen

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"revoice/internal/gateway"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/session"
)

const stageName = "regenerate"

// Controller regenerates a single sentence's cloned audio in place. The
// merged track and subtitle file are left as-is afterward; whether they are
// stale is the operator's call.
type Controller struct {
	store  *session.Store
	proc   gateway.Processor
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
}

// NewController wires the store and processing gateway.
func NewController(store *session.Store, proc gateway.Processor, logger *slog.Logger) *Controller {
	return &Controller{
		store:    store,
		proc:     proc,
		logger:   logging.NewComponentLogger(logger, "regen"),
		inflight: make(map[int64]struct{}),
	}
}

// Regenerate reclones one sentence with new text and patches exactly that
// entry on success. Validation happens before the sentence id is claimed and
// before any gateway call.
func (c *Controller) Regenerate(ctx context.Context, sentenceID int64, newText string) (session.ClonedAudio, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return session.ClonedAudio{}, services.Wrap(services.ErrValidation, stageName, "validate", "text must not be empty", nil)
	}

	sess := c.store.Snapshot()
	if sess == nil {
		return session.ClonedAudio{}, services.Wrap(services.ErrValidation, stageName, "validate", "no active session", nil)
	}
	current, ok := sess.ClonedAudios[sentenceID]
	if !ok {
		return session.ClonedAudio{}, services.Wrap(services.ErrNotFound, stageName, "validate", "no cloned audio for sentence "+strconv.FormatInt(sentenceID, 10), nil)
	}

	if err := c.claim(sentenceID); err != nil {
		return session.ClonedAudio{}, err
	}
	defer c.release(sentenceID)

	ctx = services.WithStage(ctx, stageName)
	ctx = services.WithSentenceID(ctx, sentenceID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	start := time.Now()
	logger.Info("regeneration started", logging.String(logging.FieldEventType, "regen_start"))

	result, err := c.proc.Regenerate(ctx, gateway.RegenerateRequest{
		SentenceID: sentenceID,
		Text:       newText,
		Reference:  sess.Reference,
	})
	if err != nil {
		logger.Error("regeneration failed",
			logging.String(logging.FieldEventType, "regen_failed"),
			logging.Error(err),
		)
		return session.ClonedAudio{}, err
	}

	if err := c.store.PatchClonedAudio(sentenceID, session.ClonedAudioPatch{
		Text:  newText,
		Audio: result.Clone.Audio,
	}); err != nil {
		return session.ClonedAudio{}, err
	}

	logger.Info("regeneration completed",
		logging.String(logging.FieldEventType, "regen_complete"),
		logging.Duration("elapsed", time.Since(start)),
	)

	// Report what was committed rather than re-reading the store: a
	// concurrent upload may have replaced the session by now.
	patched := current
	patched.Text = newText
	patched.Audio = result.Clone.Audio
	return patched, nil
}

func (c *Controller) claim(sentenceID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[sentenceID]; busy {
		return services.Wrap(services.ErrConflict, stageName, "claim", "regeneration already in progress for sentence "+strconv.FormatInt(sentenceID, 10), nil)
	}
	c.inflight[sentenceID] = struct{}{}
	return nil
}

func (c *Controller) release(sentenceID int64) {
	c.mu.Lock()
	delete(c.inflight, sentenceID)
	c.mu.Unlock()
}
