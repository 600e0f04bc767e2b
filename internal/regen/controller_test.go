package regen_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"revoice/internal/logging"
	"revoice/internal/regen"
	"revoice/internal/services"
	"revoice/internal/session"
	"revoice/internal/testsupport"
)

func newController(t *testing.T) (*regen.Controller, *session.Store, *testsupport.FakeProcessor) {
	t.Helper()
	store := session.NewStore()
	store.ReplaceUpload(session.ArtifactRef{RemoteURL: "https://oss/a.wav"})
	if err := store.SetTranscript("hello world", session.ArtifactRef{RemoteURL: "t"}); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}
	if err := store.SetSentences([]session.Sentence{
		{ID: 1, Text: "hello", BeginMS: 0, EndMS: 900},
		{ID: 2, Text: "world", BeginMS: 900, EndMS: 1800},
	}); err != nil {
		t.Fatalf("SetSentences: %v", err)
	}
	if err := store.SetReferenceVoice(session.ReferenceVoice{Text: "ref", Audio: session.ArtifactRef{RemoteURL: "https://oss/ref.wav"}}); err != nil {
		t.Fatalf("SetReferenceVoice: %v", err)
	}
	if err := store.SetClonedAudios([]session.ClonedAudio{
		{SentenceID: 1, Text: "hello", BeginMS: 0, EndMS: 900, Audio: session.ArtifactRef{RemoteURL: "https://oss/c1.mp3"}},
		{SentenceID: 2, Text: "world", BeginMS: 900, EndMS: 1800, Audio: session.ArtifactRef{RemoteURL: "https://oss/c2.mp3"}},
	}); err != nil {
		t.Fatalf("SetClonedAudios: %v", err)
	}
	proc := testsupport.NewFakeProcessor()
	return regen.NewController(store, proc, logging.NewNop()), store, proc
}

func TestRegenerateRejectsBlankTextBeforeGatewayCall(t *testing.T) {
	ctrl, _, proc := newController(t)

	_, err := ctrl.Regenerate(t.Context(), 1, "   \t")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if proc.Calls("regenerate") != 0 {
		t.Fatal("validation failure must not reach the gateway")
	}
}

func TestRegenerateUnknownSentenceIsNotFound(t *testing.T) {
	ctrl, _, proc := newController(t)

	_, err := ctrl.Regenerate(t.Context(), 42, "text")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if proc.Calls("regenerate") != 0 {
		t.Fatal("unknown id must not reach the gateway")
	}
}

func TestRegeneratePatchesExactlyOneEntry(t *testing.T) {
	ctrl, store, _ := newController(t)
	if err := store.SetMergedAudio(session.ArtifactRef{RemoteURL: "https://oss/merged.mp3"}); err != nil {
		t.Fatalf("SetMergedAudio: %v", err)
	}

	patched, err := ctrl.Regenerate(t.Context(), 1, "  hi there ")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if patched.Text != "hi there" {
		t.Fatalf("expected trimmed text committed, got %q", patched.Text)
	}
	if patched.Audio.RemoteURL == "https://oss/c1.mp3" {
		t.Fatal("expected a fresh audio ref")
	}
	if patched.SentenceID != 1 || patched.BeginMS != 0 || patched.EndMS != 900 {
		t.Fatalf("returned entry must keep the original identity and timing, got %+v", patched)
	}

	sess := store.Snapshot()
	if sess.ClonedAudios[2].Audio.RemoteURL != "https://oss/c2.mp3" {
		t.Fatalf("sibling entry changed: %+v", sess.ClonedAudios[2])
	}
	if !sess.HasMerged() {
		t.Fatal("regeneration must leave the merged track stale, not cleared")
	}
}

func TestConcurrentSameIDRejectedDistinctIDsProceed(t *testing.T) {
	ctrl, _, proc := newController(t)
	gate := make(chan struct{})
	proc.Gate["regenerate"] = gate

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := ctrl.Regenerate(t.Context(), 1, "first"); err != nil {
			t.Errorf("first Regenerate: %v", err)
		}
	}()
	for proc.Calls("regenerate") == 0 {
		time.Sleep(time.Millisecond)
	}

	// Same id while in flight: conflict, no extra gateway call beyond the
	// claim check.
	if _, err := ctrl.Regenerate(t.Context(), 1, "second"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict for same id, got %v", err)
	}

	// A distinct id proceeds concurrently.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := ctrl.Regenerate(t.Context(), 2, "other"); err != nil {
			t.Errorf("distinct-id Regenerate: %v", err)
		}
	}()
	for proc.Calls("regenerate") < 2 {
		time.Sleep(time.Millisecond)
	}

	close(gate)
	wg.Wait()

	if proc.Calls("regenerate") != 2 {
		t.Fatalf("expected exactly 2 gateway calls, got %d", proc.Calls("regenerate"))
	}
}

func TestRegenerateDuringSessionReplacementNeverReportsEmptySuccess(t *testing.T) {
	ctrl, store, proc := newController(t)
	gate := make(chan struct{})
	proc.Gate["regenerate"] = gate

	type outcome struct {
		clone session.ClonedAudio
		err   error
	}
	results := make(chan outcome, 1)
	go func() {
		clone, err := ctrl.Regenerate(t.Context(), 1, "replaced mid-flight")
		results <- outcome{clone, err}
	}()
	for proc.Calls("regenerate") == 0 {
		time.Sleep(time.Millisecond)
	}

	// A new upload replaces the session while the call is outstanding.
	store.ReplaceUpload(session.ArtifactRef{RemoteURL: "https://oss/second.wav"})
	close(gate)

	got := <-results
	if got.err == nil && got.clone.SentenceID == 0 {
		t.Fatalf("a vanished entry must surface as an error, not a zero-value success: %+v", got.clone)
	}
	if got.err == nil && got.clone.Text != "replaced mid-flight" {
		t.Fatalf("success must report the committed text, got %+v", got.clone)
	}
}

func TestRegenerateGatewayErrorLeavesEntryUntouched(t *testing.T) {
	ctrl, store, proc := newController(t)
	proc.Fail["regenerate"] = services.Wrap(services.ErrExternalCall, "regenerate", "request", "clone model busy", nil)

	_, err := ctrl.Regenerate(t.Context(), 1, "new text")
	if !errors.Is(err, services.ErrExternalCall) {
		t.Fatalf("expected ErrExternalCall, got %v", err)
	}
	if !strings.Contains(err.Error(), "clone model busy") {
		t.Fatalf("remote message lost: %v", err)
	}
	if got := store.Snapshot().ClonedAudios[1].Text; got != "hello" {
		t.Fatalf("failed call must not patch the entry, got %q", got)
	}
}
