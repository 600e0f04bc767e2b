package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoSession is returned when a mutation arrives before the first upload.
	ErrNoSession = errors.New("no active session")
	// ErrUnknownSentence is returned when a cloned-audio mutation names a
	// sentence the session does not contain.
	ErrUnknownSentence = errors.New("unknown sentence")
)

// SentenceEdit is one submitted text replacement, keyed by sentence id.
type SentenceEdit struct {
	ID   int64
	Text string
}

// ClonedAudioPatch replaces the text and audio of a single cloned entry.
type ClonedAudioPatch struct {
	Text  string
	Audio ArtifactRef
}

// Store is the single authoritative holder of the active session. Mutations
// are atomic with respect to a single caller; snapshots are deep copies and
// never alias live state.
//
// Downstream invalidation lives here so every writer gets the same rule:
// artifacts derived from a replaced input are cleared in the same mutation
// that replaces the input. The one deliberate exception is SetClonedAudios
// and PatchClonedAudio, which leave merged audio and subtitles in place as
// documented stale artifacts for the operator to regenerate.
type Store struct {
	mu      sync.RWMutex
	current *Session
}

// NewStore creates an empty store with no active session.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a deep copy of the active session, or nil before the
// first upload.
func (s *Store) Snapshot() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// ReplaceUpload starts a new session for freshly uploaded audio, discarding
// the previous session entirely.
func (s *Store) ReplaceUpload(audio ArtifactRef) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Session{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		UploadedAudio: audio,
	}
	return s.current.clone()
}

// SetTranscript records the recognition result. Sentences and everything
// derived from them are cleared: a new transcript invalidates the old split.
// The reference voice survives; it belongs to the parallel branch.
func (s *Store) SetTranscript(text string, file ArtifactRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.Transcript = text
	s.current.TranscriptFile = file
	s.clearSplitOutputsLocked()
	s.clearCloneOutputsLocked()
	return nil
}

// SetSentences records the split result, replacing any previous sentence
// list and clearing submit state and clone-derived artifacts.
func (s *Store) SetSentences(sentences []Sentence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	if len(sentences) == 0 {
		s.current.Sentences = nil
	} else {
		s.current.Sentences = make([]Sentence, len(sentences))
		copy(s.current.Sentences, sentences)
	}
	s.current.EditsSubmitted = false
	s.clearCloneOutputsLocked()
	return nil
}

// UpdateSentenceTexts applies submitted edits. Unknown sentence ids are
// ignored, not errors; the edit round-trips through the processing service
// before landing here, so ids can go stale in between.
func (s *Store) UpdateSentenceTexts(edits []SentenceEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	byID := make(map[int64]string, len(edits))
	for _, edit := range edits {
		byID[edit.ID] = edit.Text
	}
	for i := range s.current.Sentences {
		if text, ok := byID[s.current.Sentences[i].ID]; ok {
			s.current.Sentences[i].Text = text
		}
	}
	s.current.EditsSubmitted = true
	return nil
}

// SetReferenceVoice records the uploaded reference sample and its text.
func (s *Store) SetReferenceVoice(ref ReferenceVoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.Reference = ref
	return nil
}

// SetClonedAudios replaces the cloned-audio collection. Merged audio and
// subtitles are left untouched even when present; recloning makes them stale
// but the operator decides when to rerun merge.
func (s *Store) SetClonedAudios(clones []ClonedAudio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	known := make(map[int64]struct{}, len(s.current.Sentences))
	for _, sentence := range s.current.Sentences {
		known[sentence.ID] = struct{}{}
	}
	next := make(map[int64]ClonedAudio, len(clones))
	for _, clone := range clones {
		if _, ok := known[clone.SentenceID]; !ok {
			return fmt.Errorf("%w: cloned audio for sentence %d", ErrUnknownSentence, clone.SentenceID)
		}
		next[clone.SentenceID] = clone
	}
	s.current.ClonedAudios = next
	return nil
}

// PatchClonedAudio replaces the text and audio of exactly one cloned entry,
// leaving every other entry and the merge/subtitle artifacts untouched.
func (s *Store) PatchClonedAudio(id int64, patch ClonedAudioPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	clone, ok := s.current.ClonedAudios[id]
	if !ok {
		return fmt.Errorf("%w: cloned audio for sentence %d", ErrUnknownSentence, id)
	}
	clone.Text = patch.Text
	clone.Audio = patch.Audio
	s.current.ClonedAudios[id] = clone
	return nil
}

// SetMergedAudio records the merge result.
func (s *Store) SetMergedAudio(ref ArtifactRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.MergedAudio = ref
	return nil
}

// SetSubtitleFile records the subtitle generation result.
func (s *Store) SetSubtitleFile(ref ArtifactRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current.SubtitleFile = ref
	return nil
}

func (s *Store) clearSplitOutputsLocked() {
	s.current.Sentences = nil
	s.current.EditsSubmitted = false
}

func (s *Store) clearCloneOutputsLocked() {
	s.current.ClonedAudios = nil
	s.current.MergedAudio = ArtifactRef{}
	s.current.SubtitleFile = ArtifactRef{}
}
