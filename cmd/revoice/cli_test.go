package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"revoice/internal/api"
)

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	target := filepath.Join(t.TempDir(), "revoice.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err = runCLI(t, []string{"config", "validate", "--config", target})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderStatusWithoutColor(t *testing.T) {
	resp := api.StatusResponse{
		SessionID: "abc-123",
		Stages: []api.StageView{
			{Stage: "upload", Label: "Upload", Status: "done"},
			{Stage: "recognize", Label: "Recognize", Status: "ready"},
			{Stage: "split", Label: "Split", Status: "locked"},
		},
		Unlocked: []string{"upload", "recognize"},
		Daemon:   api.DaemonInfo{PID: 7},
	}

	out := renderStatus(resp, false)
	for _, want := range []string{"abc-123", "Recognize", "ready", "Unlocked actions: upload, recognize", "Daemon PID: 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("no ANSI codes expected without colorize")
	}
}

func TestColorizeStageStatus(t *testing.T) {
	if got := colorizeStageStatus("done", true); got != ansiGreen+"done"+ansiReset {
		t.Fatalf("unexpected colored status %q", got)
	}
	if got := colorizeStageStatus("done", false); got != "done" {
		t.Fatalf("expected plain status, got %q", got)
	}
}

func TestRenderSessionTable(t *testing.T) {
	view := &api.SessionView{
		ID:         "abc-123",
		Transcript: "hello world",
		Sentences: []api.SentenceView{
			{ID: 1, Text: "hello", BeginTime: 0, EndTime: 900},
			{ID: 2, Text: "world", BeginTime: 900, EndTime: 1800},
		},
		ClonedAudios: []api.CloneView{
			{SentenceID: 1, Text: "hello", Audio: api.ArtifactView{OSSURL: "c1"}},
		},
	}

	out := renderSession(view)
	for _, want := range []string{"hello world", "00:00:00,900", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderTableFillsMissingCells(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}, {"x", "y", "dropped"}})
	if !strings.Contains(out, "only") || !strings.Contains(out, "y") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
	if strings.Contains(out, "dropped") {
		t.Fatalf("cells beyond the header must be ignored:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
