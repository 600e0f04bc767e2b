package session

import "time"

// ArtifactRef is an opaque handle to a processing-service artifact. The
// service reports both the path on its own storage and the object-store URL
// it published; neither is interpreted here.
type ArtifactRef struct {
	LocalPath string
	RemoteURL string
}

// IsZero reports whether the ref points at nothing.
func (r ArtifactRef) IsZero() bool {
	return r.LocalPath == "" && r.RemoteURL == ""
}

// Sentence is one transcript segment with stable identity, produced by the
// split stage. Text is mutable via submitted edits; the audio clip and timing
// are fixed until the pipeline reruns from an earlier stage.
type Sentence struct {
	ID      int64
	Text    string
	BeginMS int64
	EndMS   int64
	Audio   ArtifactRef
}

// ClonedAudio is the per-sentence voice-cloned output. Text is a snapshot of
// the sentence text at generation time and can diverge from the sentence
// after later edits.
type ClonedAudio struct {
	SentenceID int64
	Text       string
	BeginMS    int64
	EndMS      int64
	Audio      ArtifactRef
}

// ReferenceVoice is the uploaded reference sample plus its spoken text.
type ReferenceVoice struct {
	Text  string
	Audio ArtifactRef
}

// Session is the root aggregate for one workflow run. Exactly one session is
// active at a time; a new upload replaces it wholesale.
type Session struct {
	ID        string
	CreatedAt time.Time

	UploadedAudio  ArtifactRef
	Transcript     string
	TranscriptFile ArtifactRef
	Sentences      []Sentence
	EditsSubmitted bool
	Reference      ReferenceVoice
	ClonedAudios   map[int64]ClonedAudio
	MergedAudio    ArtifactRef
	SubtitleFile   ArtifactRef
}

// HasUpload reports whether source audio has been uploaded.
func (s *Session) HasUpload() bool { return s != nil && !s.UploadedAudio.IsZero() }

// HasTranscript reports whether recognition has completed.
func (s *Session) HasTranscript() bool { return s != nil && s.Transcript != "" }

// HasSentences reports whether the split stage has produced sentences.
func (s *Session) HasSentences() bool { return s != nil && len(s.Sentences) > 0 }

// HasReference reports whether a reference voice has been uploaded.
func (s *Session) HasReference() bool { return s != nil && !s.Reference.Audio.IsZero() }

// HasClones reports whether voice cloning has produced per-sentence audio.
func (s *Session) HasClones() bool { return s != nil && len(s.ClonedAudios) > 0 }

// HasMerged reports whether the cloned audio has been merged.
func (s *Session) HasMerged() bool { return s != nil && !s.MergedAudio.IsZero() }

// HasSubtitles reports whether a subtitle artifact has been generated.
func (s *Session) HasSubtitles() bool { return s != nil && !s.SubtitleFile.IsZero() }

// SentenceByID returns the sentence with the given identifier.
func (s *Session) SentenceByID(id int64) (Sentence, bool) {
	if s == nil {
		return Sentence{}, false
	}
	for _, sentence := range s.Sentences {
		if sentence.ID == id {
			return sentence, true
		}
	}
	return Sentence{}, false
}

// OrderedClones returns the cloned audio entries in sentence order. Clones
// whose sentence no longer exists are appended last by id so nothing is
// silently dropped.
func (s *Session) OrderedClones() []ClonedAudio {
	if s == nil || len(s.ClonedAudios) == 0 {
		return nil
	}
	out := make([]ClonedAudio, 0, len(s.ClonedAudios))
	seen := make(map[int64]struct{}, len(s.ClonedAudios))
	for _, sentence := range s.Sentences {
		if clone, ok := s.ClonedAudios[sentence.ID]; ok {
			out = append(out, clone)
			seen[sentence.ID] = struct{}{}
		}
	}
	if len(out) < len(s.ClonedAudios) {
		rest := make([]ClonedAudio, 0, len(s.ClonedAudios)-len(out))
		for id, clone := range s.ClonedAudios {
			if _, ok := seen[id]; !ok {
				rest = append(rest, clone)
			}
		}
		for i := 0; i < len(rest); i++ {
			for j := i + 1; j < len(rest); j++ {
				if rest[j].SentenceID < rest[i].SentenceID {
					rest[i], rest[j] = rest[j], rest[i]
				}
			}
		}
		out = append(out, rest...)
	}
	return out
}

// clone returns a deep copy so store snapshots cannot alias live state.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Sentences != nil {
		cp.Sentences = make([]Sentence, len(s.Sentences))
		copy(cp.Sentences, s.Sentences)
	}
	if s.ClonedAudios != nil {
		cp.ClonedAudios = make(map[int64]ClonedAudio, len(s.ClonedAudios))
		for id, clone := range s.ClonedAudios {
			cp.ClonedAudios[id] = clone
		}
	}
	return &cp
}
