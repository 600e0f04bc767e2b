package workflow_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/session"
	"revoice/internal/testsupport"
	"revoice/internal/workflow"
)

func newManager(t *testing.T) (*workflow.Manager, *testsupport.FakeProcessor) {
	t.Helper()
	proc := testsupport.NewFakeProcessor()
	store := session.NewStore()
	return workflow.NewManager(store, proc, logging.NewNop()), proc
}

func mustRun(t *testing.T, name string, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
}

// runThroughSplit takes a fresh manager to the point where sentences exist.
func runThroughSplit(t *testing.T, m *workflow.Manager) {
	t.Helper()
	mustRun(t, "Upload", m.Upload(t.Context(), "speech.wav", strings.NewReader("RIFF")))
	mustRun(t, "Recognize", m.Recognize(t.Context()))
	mustRun(t, "Split", m.Split(t.Context()))
}

func TestStagesLockedUntilPredecessorDone(t *testing.T) {
	m, proc := newManager(t)

	for name, err := range map[string]error{
		"Recognize": m.Recognize(t.Context()),
		"Split":     m.Split(t.Context()),
		"Merge":     m.Merge(t.Context()),
		"Subtitle":  m.Subtitle(t.Context()),
		"Clone":     m.Clone(t.Context()),
	} {
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s before upload: expected ErrValidation, got %v", name, err)
		}
	}
	if proc.Calls("recognize") != 0 || proc.Calls("merge") != 0 {
		t.Fatal("locked stages must not reach the gateway")
	}
}

func TestEndToEndPipeline(t *testing.T) {
	m, _ := newManager(t)
	runThroughSplit(t, m)
	mustRun(t, "SubmitEdits", m.SubmitEdits(t.Context(), []session.SentenceEdit{{ID: 1, Text: "hi"}}))
	mustRun(t, "UploadReference", m.UploadReference(t.Context(), "ref.wav", strings.NewReader("RIFF"), "sample text"))
	mustRun(t, "Clone", m.Clone(t.Context()))
	mustRun(t, "Merge", m.Merge(t.Context()))
	mustRun(t, "Subtitle", m.Subtitle(t.Context()))

	summary := m.Status()
	for _, st := range summary.Stages {
		if st.Status != workflow.StatusDone {
			t.Errorf("stage %s: expected done, got %s", st.Stage, st.Status)
		}
	}
	sess := m.Session()
	if sess.ClonedAudios[1].Text != "hi" {
		t.Fatalf("edited text should flow into the clone, got %q", sess.ClonedAudios[1].Text)
	}
	if !sess.HasMerged() || !sess.HasSubtitles() {
		t.Fatalf("missing final artifacts: %+v", sess)
	}
}

func TestUploadReplacesSessionAndRelocksDownstream(t *testing.T) {
	m, _ := newManager(t)
	runThroughSplit(t, m)
	mustRun(t, "UploadReference", m.UploadReference(t.Context(), "ref.wav", strings.NewReader("RIFF"), "sample"))
	mustRun(t, "Clone", m.Clone(t.Context()))
	mustRun(t, "Merge", m.Merge(t.Context()))
	firstID := m.Session().ID

	mustRun(t, "Upload", m.Upload(t.Context(), "second.wav", strings.NewReader("RIFF")))

	sess := m.Session()
	if sess.ID == firstID {
		t.Fatal("expected a fresh session")
	}
	summary := m.Status()
	if got := summary.StatusOf(workflow.StageRecognize); got != workflow.StatusReady {
		t.Fatalf("Recognize should be the only unlocked derived stage, got %s", got)
	}
	for _, stage := range []workflow.Stage{workflow.StageSplit, workflow.StageSubmitEdits, workflow.StageClone, workflow.StageMerge, workflow.StageSubtitle} {
		if got := summary.StatusOf(stage); got != workflow.StatusLocked {
			t.Errorf("stage %s: expected locked after re-upload, got %s", stage, got)
		}
	}
}

func TestRecognizeRerunClearsDownstreamButKeepsReference(t *testing.T) {
	m, _ := newManager(t)
	runThroughSplit(t, m)
	mustRun(t, "UploadReference", m.UploadReference(t.Context(), "ref.wav", strings.NewReader("RIFF"), "sample"))
	mustRun(t, "Clone", m.Clone(t.Context()))

	mustRun(t, "Recognize again", m.Recognize(t.Context()))

	summary := m.Status()
	if got := summary.StatusOf(workflow.StageSplit); got != workflow.StatusReady {
		t.Fatalf("Split should unlock after re-recognize, got %s", got)
	}
	if got := summary.StatusOf(workflow.StageSubmitEdits); got != workflow.StatusLocked {
		t.Fatalf("SubmitEdits should re-lock, got %s", got)
	}
	if got := summary.StatusOf(workflow.StageReferenceUpload); got != workflow.StatusDone {
		t.Fatalf("reference branch must survive a recognize re-run, got %s", got)
	}
}

func TestCloneGatedOnReferenceOnly(t *testing.T) {
	m, proc := newManager(t)
	runThroughSplit(t, m)

	// Sentences exist, edits never submitted: still locked without reference.
	if err := m.Clone(t.Context()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without reference, got %v", err)
	}

	mustRun(t, "UploadReference", m.UploadReference(t.Context(), "ref.wav", strings.NewReader("RIFF"), "sample"))
	mustRun(t, "Clone", m.Clone(t.Context()))
	if proc.Calls("clone") != 1 {
		t.Fatalf("expected one clone call, got %d", proc.Calls("clone"))
	}
}

func TestFailedStageLeavesSessionUntouched(t *testing.T) {
	m, proc := newManager(t)
	mustRun(t, "Upload", m.Upload(t.Context(), "speech.wav", strings.NewReader("RIFF")))
	proc.Fail["recognize"] = services.Wrap(services.ErrExternalCall, "recognize", "request", "model not loaded", nil)

	err := m.Recognize(t.Context())
	if !errors.Is(err, services.ErrExternalCall) {
		t.Fatalf("expected ErrExternalCall, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("remote message lost: %v", err)
	}
	if m.Session().HasTranscript() {
		t.Fatal("failed call must not commit a transcript")
	}
	if got := m.Status().StatusOf(workflow.StageRecognize); got != workflow.StatusReady {
		t.Fatalf("failed stage should return to ready, got %s", got)
	}
}

func TestInFlightStageRejectsSecondTrigger(t *testing.T) {
	m, proc := newManager(t)
	runThroughSplit(t, m)
	mustRun(t, "UploadReference", m.UploadReference(t.Context(), "ref.wav", strings.NewReader("RIFF"), "sample"))
	mustRun(t, "Clone", m.Clone(t.Context()))

	gate := make(chan struct{})
	proc.Gate["merge"] = gate

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		if err := m.Merge(t.Context()); err != nil {
			t.Errorf("first Merge: %v", err)
		}
	}()
	<-started
	// Wait until the first call reaches the gateway.
	for proc.Calls("merge") == 0 {
		time.Sleep(time.Millisecond)
	}

	if got := m.Status().StatusOf(workflow.StageMerge); got != workflow.StatusInProgress {
		t.Fatalf("expected in-progress, got %s", got)
	}
	if err := m.Merge(t.Context()); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected ErrConflict for double trigger, got %v", err)
	}

	close(gate)
	wg.Wait()
	if proc.Calls("merge") != 1 {
		t.Fatalf("duplicate trigger must not reach the gateway, got %d calls", proc.Calls("merge"))
	}
	if got := m.Status().StatusOf(workflow.StageMerge); got != workflow.StatusDone {
		t.Fatalf("expected done after release, got %s", got)
	}
}

func TestSubmitEditsValidation(t *testing.T) {
	m, proc := newManager(t)
	runThroughSplit(t, m)

	if err := m.SubmitEdits(t.Context(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty edits, got %v", err)
	}
	if proc.Calls("submit_edits") != 0 {
		t.Fatal("validation failures must not reach the gateway")
	}
}

func TestUploadReferenceRequiresText(t *testing.T) {
	m, proc := newManager(t)
	mustRun(t, "Upload", m.Upload(t.Context(), "speech.wav", strings.NewReader("RIFF")))

	err := m.UploadReference(t.Context(), "ref.wav", strings.NewReader("RIFF"), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank text, got %v", err)
	}
	if proc.Calls("reference") != 0 {
		t.Fatal("validation failures must not reach the gateway")
	}
}

func TestSubtitlePreview(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.SubtitlePreview(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation before split, got %v", err)
	}
	runThroughSplit(t, m)

	doc, err := m.SubtitlePreview()
	if err != nil {
		t.Fatalf("SubtitlePreview: %v", err)
	}
	if !strings.Contains(doc, "00:00:00,000 --> 00:00:00,900") || !strings.Contains(doc, "hello") {
		t.Fatalf("unexpected preview:\n%s", doc)
	}
}
