package gateway

import (
	"context"
	"io"

	"revoice/internal/session"
)

// UploadRequest carries the source audio file for a new workflow run.
type UploadRequest struct {
	FileName string
	Content  io.Reader
}

// UploadResult reports where the service stored the original and the
// preprocessed (16 kHz mono WAV) audio. The pipeline consumes the processed
// ref from here on.
type UploadResult struct {
	Original  session.ArtifactRef
	Processed session.ArtifactRef
}

// RecognizeRequest names the uploaded audio to transcribe.
type RecognizeRequest struct {
	Audio session.ArtifactRef
}

// RecognizeResult carries the transcript text plus the stored transcription
// document the split stage consumes.
type RecognizeResult struct {
	Text       string
	Transcript session.ArtifactRef
}

// SplitRequest names the audio and transcription document to split.
type SplitRequest struct {
	Audio      session.ArtifactRef
	Transcript session.ArtifactRef
}

// SplitResult carries the ordered per-sentence clips with timing.
type SplitResult struct {
	Sentences []session.Sentence
}

// UpdateTranscriptionRequest pushes the edited sentence list to the service.
type UpdateTranscriptionRequest struct {
	Sentences []session.Sentence
}

// ReferenceRequest carries the reference voice sample and its spoken text.
type ReferenceRequest struct {
	FileName string
	Content  io.Reader
	Text     string
}

// ReferenceResult reports the stored reference voice.
type ReferenceResult struct {
	Voice session.ReferenceVoice
}

// CloneRequest asks for voice-cloned audio of every sentence.
type CloneRequest struct {
	Reference session.ReferenceVoice
	Sentences []session.Sentence
}

// CloneResult carries one cloned clip per requested sentence.
type CloneResult struct {
	Clones []session.ClonedAudio
}

// RegenerateRequest asks for a fresh clone of a single sentence.
type RegenerateRequest struct {
	SentenceID int64
	Text       string
	Reference  session.ReferenceVoice
}

// RegenerateResult carries the replacement clone for one sentence.
type RegenerateResult struct {
	Clone session.ClonedAudio
}

// MergeRequest asks for the cloned clips to be concatenated in order.
type MergeRequest struct {
	Clones []session.ClonedAudio
}

// MergeResult reports the merged audio artifact.
type MergeResult struct {
	Audio session.ArtifactRef
}

// SubtitleRequest asks for an SRT file covering the given sentences.
type SubtitleRequest struct {
	Sentences []session.Sentence
}

// SubtitleResult reports the subtitle artifact.
type SubtitleResult struct {
	File session.ArtifactRef
}

// Processor is the external processing service boundary. Every call is plain
// request/response: no streaming, no automatic retry, no client-side
// deadline, and no session mutation — callers apply results to the store
// only after a successful response.
type Processor interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
	Recognize(ctx context.Context, req RecognizeRequest) (RecognizeResult, error)
	Split(ctx context.Context, req SplitRequest) (SplitResult, error)
	UpdateTranscription(ctx context.Context, req UpdateTranscriptionRequest) error
	UploadReference(ctx context.Context, req ReferenceRequest) (ReferenceResult, error)
	Clone(ctx context.Context, req CloneRequest) (CloneResult, error)
	Regenerate(ctx context.Context, req RegenerateRequest) (RegenerateResult, error)
	Merge(ctx context.Context, req MergeRequest) (MergeResult, error)
	GenerateSubtitles(ctx context.Context, req SubtitleRequest) (SubtitleResult, error)
}
