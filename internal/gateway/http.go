package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/session"
)

// Client talks to the external processing service over HTTP. The underlying
// http.Client carries no timeout: cloning or merging a long recording can
// legitimately run for minutes, and a pending call stays a valid in-progress
// operation until the transport gives up.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

var _ Processor = (*Client)(nil)

// NewClient builds a gateway client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	base := ""
	if cfg != nil {
		base = strings.TrimRight(cfg.Processing.BaseURL, "/")
	}
	return &Client{
		baseURL: base,
		httpc:   &http.Client{},
		logger:  logging.NewComponentLogger(logger, "gateway"),
	}
}

// WithHTTPClient overrides the transport (used in tests).
func (c *Client) WithHTTPClient(httpc *http.Client) *Client {
	if httpc != nil {
		c.httpc = httpc
	}
	return c
}

// Upload sends the source audio for preprocessing and storage.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	var payload uploadResponse
	err := c.postMultipart(ctx, "upload", "/upload", req.FileName, req.Content, nil, &payload)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{
		Original:  payload.OriginalAudio.toRef(),
		Processed: payload.PreprocessedAudio.toRef(),
	}, nil
}

// Recognize transcribes the uploaded audio.
func (c *Client) Recognize(ctx context.Context, req RecognizeRequest) (RecognizeResult, error) {
	var payload recognizeResponse
	body := recognizeRequestPayload{AudioURL: req.Audio.RemoteURL}
	if err := c.postJSON(ctx, "recognize", "/recognize", body, &payload); err != nil {
		return RecognizeResult{}, err
	}
	return RecognizeResult{Text: payload.Text, Transcript: payload.Transcription.toRef()}, nil
}

// Split cuts the audio into per-sentence clips using the transcription timing.
func (c *Client) Split(ctx context.Context, req SplitRequest) (SplitResult, error) {
	var payload splitResponse
	body := splitRequestPayload{
		AudioURL:         req.Audio.RemoteURL,
		TranscriptionURL: req.Transcript.RemoteURL,
	}
	if err := c.postJSON(ctx, "split", "/split_audio", body, &payload); err != nil {
		return SplitResult{}, err
	}
	sentences := make([]session.Sentence, 0, len(payload.Sentences))
	for _, p := range payload.Sentences {
		sentences = append(sentences, p.toSentence())
	}
	return SplitResult{Sentences: sentences}, nil
}

// UpdateTranscription pushes edited sentence texts to the service.
func (c *Client) UpdateTranscription(ctx context.Context, req UpdateTranscriptionRequest) error {
	body := updateTranscriptionPayload{UpdatedSentences: toSentencePayloads(req.Sentences)}
	return c.postJSON(ctx, "submit_edits", "/update_transcription", body, nil)
}

// UploadReference stores the reference voice sample and its text.
func (c *Client) UploadReference(ctx context.Context, req ReferenceRequest) (ReferenceResult, error) {
	var payload referenceResponse
	fields := map[string]string{"text": req.Text}
	if err := c.postMultipart(ctx, "upload_reference", "/upload_reference", req.FileName, req.Content, fields, &payload); err != nil {
		return ReferenceResult{}, err
	}
	return ReferenceResult{Voice: session.ReferenceVoice{
		Text:  payload.ReferenceAudio.Text,
		Audio: payload.ReferenceAudio.toRef(),
	}}, nil
}

// Clone generates voice-cloned audio for every sentence.
func (c *Client) Clone(ctx context.Context, req CloneRequest) (CloneResult, error) {
	var payload cloneResponse
	body := cloneRequestPayload{
		ReferenceAudioURL: req.Reference.Audio.RemoteURL,
		Sentences:         toSentencePayloads(req.Sentences),
	}
	if err := c.postJSON(ctx, "clone", "/generate_cloned_audio", body, &payload); err != nil {
		return CloneResult{}, err
	}
	clones := make([]session.ClonedAudio, 0, len(payload.Clones))
	for _, p := range payload.Clones {
		clones = append(clones, p.toClonedAudio())
	}
	return CloneResult{Clones: clones}, nil
}

// Regenerate reclones a single sentence with new text.
func (c *Client) Regenerate(ctx context.Context, req RegenerateRequest) (RegenerateResult, error) {
	var payload regenerateResponse
	body := regenerateRequestPayload{
		SentenceID:        req.SentenceID,
		Text:              req.Text,
		ReferenceAudioURL: req.Reference.Audio.RemoteURL,
	}
	if err := c.postJSON(ctx, "regenerate", "/regenerate_cloned_audio", body, &payload); err != nil {
		return RegenerateResult{}, err
	}
	return RegenerateResult{Clone: payload.UpdatedSentence.toClonedAudio()}, nil
}

// Merge concatenates the cloned clips into one track.
func (c *Client) Merge(ctx context.Context, req MergeRequest) (MergeResult, error) {
	var payload mergeResponse
	body := mergeRequestPayload{Clones: toClonePayloads(req.Clones)}
	if err := c.postJSON(ctx, "merge", "/merge_cloned_audio", body, &payload); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Audio: payload.MergedAudio.toRef()}, nil
}

// GenerateSubtitles produces an SRT file from sentence timing.
func (c *Client) GenerateSubtitles(ctx context.Context, req SubtitleRequest) (SubtitleResult, error) {
	var payload subtitleResponse
	body := subtitleRequestPayload{Sentences: toSentencePayloads(req.Sentences)}
	if err := c.postJSON(ctx, "subtitles", "/generate_srt", body, &payload); err != nil {
		return SubtitleResult{}, err
	}
	return SubtitleResult{File: payload.GeneratedSRT.toRef()}, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return services.Wrap(services.ErrExternalCall, op, "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrExternalCall, op, "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *Client) postMultipart(ctx context.Context, op, path, fileName string, content io.Reader, fields map[string]string, out any) error {
	if content == nil {
		return services.Wrap(services.ErrValidation, op, "build request", "file content required", nil)
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return services.Wrap(services.ErrExternalCall, op, "build request", "", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return services.Wrap(services.ErrExternalCall, op, "read file", "", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return services.Wrap(services.ErrExternalCall, op, "build request", "", err)
		}
	}
	if err := writer.Close(); err != nil {
		return services.Wrap(services.ErrExternalCall, op, "build request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return services.Wrap(services.ErrExternalCall, op, "build request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalCall, op, "request", "processing service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrExternalCall, op, "request", remoteErrorMessage(resp), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return services.Wrap(services.ErrExternalCall, op, "decode response", "", err)
		}
	}

	c.logger.Debug("processing call completed",
		logging.String("operation", op),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// remoteErrorMessage surfaces the service's own error text verbatim; the
// operator sees exactly what the service reported.
func remoteErrorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	var payload errorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		if payload.Details != "" {
			return payload.Error + ": " + payload.Details
		}
		return payload.Error
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
