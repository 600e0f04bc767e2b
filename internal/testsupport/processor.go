// Package testsupport provides fixtures shared by the package tests: a
// scriptable in-memory Processor and config builders.
package testsupport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"revoice/internal/gateway"
	"revoice/internal/session"
)

// FakeProcessor implements gateway.Processor with canned results. Every
// method consumes its request, bumps a per-operation call counter, honors an
// optional per-operation gate (to hold a call open mid-flight), and returns
// either a scripted error or a deterministic result derived from the
// request.
type FakeProcessor struct {
	mu    sync.Mutex
	calls map[string]int

	// Fail maps an operation name (upload, recognize, split, submit_edits,
	// reference, clone, regenerate, merge, subtitles) to the error that
	// operation should return.
	Fail map[string]error

	// Gate maps an operation name to a channel the call blocks on before
	// returning. Close the channel to release the call.
	Gate map[string]chan struct{}

	// Sentences is what Split returns. Defaults to two sentences when nil.
	Sentences []session.Sentence
}

var _ gateway.Processor = (*FakeProcessor)(nil)

// NewFakeProcessor returns a processor that succeeds on every operation.
func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{
		calls: make(map[string]int),
		Fail:  make(map[string]error),
		Gate:  make(map[string]chan struct{}),
	}
}

// Calls reports how many times the named operation ran.
func (f *FakeProcessor) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeProcessor) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.Gate[op]
	err := f.Fail[op]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *FakeProcessor) Upload(ctx context.Context, req gateway.UploadRequest) (gateway.UploadResult, error) {
	if req.Content != nil {
		io.Copy(io.Discard, req.Content)
	}
	if err := f.enter(ctx, "upload"); err != nil {
		return gateway.UploadResult{}, err
	}
	return gateway.UploadResult{
		Original:  session.ArtifactRef{LocalPath: "/srv/" + req.FileName, RemoteURL: "https://oss/" + req.FileName},
		Processed: session.ArtifactRef{LocalPath: "/srv/16k_" + req.FileName, RemoteURL: "https://oss/16k_" + req.FileName},
	}, nil
}

func (f *FakeProcessor) Recognize(ctx context.Context, req gateway.RecognizeRequest) (gateway.RecognizeResult, error) {
	if err := f.enter(ctx, "recognize"); err != nil {
		return gateway.RecognizeResult{}, err
	}
	return gateway.RecognizeResult{
		Text:       "hello world",
		Transcript: session.ArtifactRef{RemoteURL: "https://oss/transcription.json"},
	}, nil
}

func (f *FakeProcessor) Split(ctx context.Context, req gateway.SplitRequest) (gateway.SplitResult, error) {
	if err := f.enter(ctx, "split"); err != nil {
		return gateway.SplitResult{}, err
	}
	sentences := f.Sentences
	if sentences == nil {
		sentences = []session.Sentence{
			{ID: 1, Text: "hello", BeginMS: 0, EndMS: 900, Audio: session.ArtifactRef{RemoteURL: "https://oss/s1.wav"}},
			{ID: 2, Text: "world", BeginMS: 900, EndMS: 1800, Audio: session.ArtifactRef{RemoteURL: "https://oss/s2.wav"}},
		}
	}
	out := make([]session.Sentence, len(sentences))
	copy(out, sentences)
	return gateway.SplitResult{Sentences: out}, nil
}

func (f *FakeProcessor) UpdateTranscription(ctx context.Context, req gateway.UpdateTranscriptionRequest) error {
	return f.enter(ctx, "submit_edits")
}

func (f *FakeProcessor) UploadReference(ctx context.Context, req gateway.ReferenceRequest) (gateway.ReferenceResult, error) {
	if req.Content != nil {
		io.Copy(io.Discard, req.Content)
	}
	if err := f.enter(ctx, "reference"); err != nil {
		return gateway.ReferenceResult{}, err
	}
	return gateway.ReferenceResult{Voice: session.ReferenceVoice{
		Text:  req.Text,
		Audio: session.ArtifactRef{RemoteURL: "https://oss/" + req.FileName},
	}}, nil
}

func (f *FakeProcessor) Clone(ctx context.Context, req gateway.CloneRequest) (gateway.CloneResult, error) {
	if err := f.enter(ctx, "clone"); err != nil {
		return gateway.CloneResult{}, err
	}
	clones := make([]session.ClonedAudio, 0, len(req.Sentences))
	for _, s := range req.Sentences {
		clones = append(clones, session.ClonedAudio{
			SentenceID: s.ID,
			Text:       s.Text,
			BeginMS:    s.BeginMS,
			EndMS:      s.EndMS,
			Audio:      session.ArtifactRef{RemoteURL: fmt.Sprintf("https://oss/clone_%d.mp3", s.ID)},
		})
	}
	return gateway.CloneResult{Clones: clones}, nil
}

func (f *FakeProcessor) Regenerate(ctx context.Context, req gateway.RegenerateRequest) (gateway.RegenerateResult, error) {
	if err := f.enter(ctx, "regenerate"); err != nil {
		return gateway.RegenerateResult{}, err
	}
	return gateway.RegenerateResult{Clone: session.ClonedAudio{
		SentenceID: req.SentenceID,
		Text:       req.Text,
		Audio:      session.ArtifactRef{RemoteURL: fmt.Sprintf("https://oss/clone_%d_v2.mp3", req.SentenceID)},
	}}, nil
}

func (f *FakeProcessor) Merge(ctx context.Context, req gateway.MergeRequest) (gateway.MergeResult, error) {
	if err := f.enter(ctx, "merge"); err != nil {
		return gateway.MergeResult{}, err
	}
	return gateway.MergeResult{Audio: session.ArtifactRef{RemoteURL: "https://oss/merged.mp3"}}, nil
}

func (f *FakeProcessor) GenerateSubtitles(ctx context.Context, req gateway.SubtitleRequest) (gateway.SubtitleResult, error) {
	if err := f.enter(ctx, "subtitles"); err != nil {
		return gateway.SubtitleResult{}, err
	}
	return gateway.SubtitleResult{File: session.ArtifactRef{RemoteURL: "https://oss/subtitles.srt"}}, nil
}
