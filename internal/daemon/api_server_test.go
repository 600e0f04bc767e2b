package daemon_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"revoice/internal/daemon"
	"revoice/internal/logging"
	"revoice/internal/regen"
	"revoice/internal/services"
	"revoice/internal/session"
	"revoice/internal/testsupport"
	"revoice/internal/workflow"
)

type daemonFixture struct {
	base string
	proc *testsupport.FakeProcessor
}

func startDaemon(t *testing.T) *daemonFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	proc := testsupport.NewFakeProcessor()
	store := session.NewStore()
	logger := logging.NewNop()
	manager := workflow.NewManager(store, proc, logger)
	ctrl := regen.NewController(store, proc, logger)

	d, err := daemon.New(cfg, manager, ctrl, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(t.Context()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &daemonFixture{base: "http://" + d.Addr(), proc: proc}
}

func (f *daemonFixture) postMultipart(t *testing.T, path, fileName, body string, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	io.WriteString(part, body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	resp, err := http.Post(f.base+path, writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (f *daemonFixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	resp, err := http.Post(f.base+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestPipelineOverHTTP(t *testing.T) {
	f := startDaemon(t)

	resp := f.postMultipart(t, "/api/upload", "speech.wav", "RIFFdata", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	var sessView map[string]any
	decodeBody(t, resp, &sessView)
	if sessView["session_id"] == "" {
		t.Fatal("expected a session id in the upload response")
	}

	for _, path := range []string{"/api/recognize", "/api/split"} {
		resp = f.postJSON(t, path, map[string]any{})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp = f.postJSON(t, "/api/transcription", map[string]any{
		"sentences": []map[string]any{{"sentence_id": 1, "text": "hi"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcription: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = f.postMultipart(t, "/api/reference", "ref.wav", "RIFFref", map[string]string{"text": "sample"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reference: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	for _, path := range []string{"/api/clone", "/api/merge", "/api/subtitles"} {
		resp = f.postJSON(t, path, map[string]any{})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	statusResp, err := http.Get(f.base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status struct {
		Stages []struct {
			Stage  string `json:"stage"`
			Status string `json:"status"`
		} `json:"stages"`
	}
	decodeBody(t, statusResp, &status)
	for _, st := range status.Stages {
		if st.Status != "done" {
			t.Errorf("stage %s: expected done, got %s", st.Stage, st.Status)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	f := startDaemon(t)

	// Locked stage: validation, 400.
	resp := f.postJSON(t, "/api/recognize", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("locked stage: expected 400, got %d", resp.StatusCode)
	}
	var payload struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &payload)
	if payload.Error == "" {
		t.Fatal("expected an error message")
	}

	resp = f.postMultipart(t, "/api/upload", "speech.wav", "RIFFdata", nil)
	resp.Body.Close()

	// Unknown sentence regeneration: 404.
	resp = f.postJSON(t, "/api/clone/regenerate", map[string]any{"sentence_id": 9, "text": "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown sentence: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Gateway failure: 502 with the remote message.
	f.proc.Fail["recognize"] = services.Wrap(services.ErrExternalCall, "recognize", "request", "model not loaded", nil)
	resp = f.postJSON(t, "/api/recognize", map[string]any{})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("gateway failure: expected 502, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &payload)
	if !strings.Contains(payload.Error, "model not loaded") {
		t.Fatalf("remote message lost: %q", payload.Error)
	}

	// Missing multipart file: 400.
	resp = f.postJSON(t, "/api/upload", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing file: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUploadLimitEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processing.UploadMaxMB = 1
	proc := testsupport.NewFakeProcessor()
	store := session.NewStore()
	logger := logging.NewNop()
	d, err := daemon.New(cfg, workflow.NewManager(store, proc, logger), regen.NewController(store, proc, logger), logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(t.Context()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	big := strings.Repeat("a", 2<<20)
	fixture := &daemonFixture{base: "http://" + d.Addr()}
	resp := fixture.postMultipart(t, "/api/upload", "big.wav", big, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized upload: expected 400, got %d", resp.StatusCode)
	}
}

func TestSubtitlePreviewEndpoint(t *testing.T) {
	f := startDaemon(t)
	f.postMultipart(t, "/api/upload", "speech.wav", "RIFF", nil).Body.Close()
	f.postJSON(t, "/api/recognize", nil).Body.Close()
	f.postJSON(t, "/api/split", nil).Body.Close()

	resp, err := http.Get(f.base + "/api/subtitles/preview")
	if err != nil {
		t.Fatalf("GET preview: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: status %d", resp.StatusCode)
	}
	doc, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(doc), "-->") {
		t.Fatalf("expected SRT output, got %q", doc)
	}
}

func TestSecondDaemonInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	proc := testsupport.NewFakeProcessor()
	store := session.NewStore()
	logger := logging.NewNop()

	first, err := daemon.New(cfg, workflow.NewManager(store, proc, logger), regen.NewController(store, proc, logger), logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(t.Context()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	second, err := daemon.New(cfg, workflow.NewManager(store, proc, logger), regen.NewController(store, proc, logger), logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(t.Context()); err == nil {
		second.Stop()
		t.Fatal("expected the lock to reject a second instance")
	}
}

func TestSessionEndpointBeforeUpload(t *testing.T) {
	f := startDaemon(t)
	resp, err := http.Get(f.base + "/api/session")
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session: status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "null" {
		t.Fatalf("expected null session, got %q", body)
	}
}
