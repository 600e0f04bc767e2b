package gateway

import "revoice/internal/session"

// Wire payloads mirror the processing service's JSON field names.

type artifactPayload struct {
	LocalURL string `json:"local_url"`
	OSSURL   string `json:"oss_url"`
}

func (p artifactPayload) toRef() session.ArtifactRef {
	return session.ArtifactRef{LocalPath: p.LocalURL, RemoteURL: p.OSSURL}
}

func toArtifactPayload(ref session.ArtifactRef) artifactPayload {
	return artifactPayload{LocalURL: ref.LocalPath, OSSURL: ref.RemoteURL}
}

type sentencePayload struct {
	SentenceID int64  `json:"sentence_id"`
	Text       string `json:"text"`
	BeginTime  int64  `json:"begin_time"`
	EndTime    int64  `json:"end_time"`
	LocalURL   string `json:"local_url,omitempty"`
	OSSURL     string `json:"oss_url,omitempty"`
}

func (p sentencePayload) toSentence() session.Sentence {
	return session.Sentence{
		ID:      p.SentenceID,
		Text:    p.Text,
		BeginMS: p.BeginTime,
		EndMS:   p.EndTime,
		Audio:   session.ArtifactRef{LocalPath: p.LocalURL, RemoteURL: p.OSSURL},
	}
}

func (p sentencePayload) toClonedAudio() session.ClonedAudio {
	return session.ClonedAudio{
		SentenceID: p.SentenceID,
		Text:       p.Text,
		BeginMS:    p.BeginTime,
		EndMS:      p.EndTime,
		Audio:      session.ArtifactRef{LocalPath: p.LocalURL, RemoteURL: p.OSSURL},
	}
}

func toSentencePayloads(sentences []session.Sentence) []sentencePayload {
	out := make([]sentencePayload, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, sentencePayload{
			SentenceID: s.ID,
			Text:       s.Text,
			BeginTime:  s.BeginMS,
			EndTime:    s.EndMS,
			LocalURL:   s.Audio.LocalPath,
			OSSURL:     s.Audio.RemoteURL,
		})
	}
	return out
}

func toClonePayloads(clones []session.ClonedAudio) []sentencePayload {
	out := make([]sentencePayload, 0, len(clones))
	for _, c := range clones {
		out = append(out, sentencePayload{
			SentenceID: c.SentenceID,
			Text:       c.Text,
			BeginTime:  c.BeginMS,
			EndTime:    c.EndMS,
			LocalURL:   c.Audio.LocalPath,
			OSSURL:     c.Audio.RemoteURL,
		})
	}
	return out
}

type uploadResponse struct {
	OriginalAudio     artifactPayload `json:"original_audio"`
	PreprocessedAudio artifactPayload `json:"preprocessed_audio"`
}

type recognizeRequestPayload struct {
	AudioURL string `json:"audio_url"`
}

type recognizeResponse struct {
	Text          string          `json:"text"`
	Transcription artifactPayload `json:"transcription"`
}

type splitRequestPayload struct {
	AudioURL         string `json:"audio_url"`
	TranscriptionURL string `json:"transcription_url"`
}

type splitResponse struct {
	Sentences []sentencePayload `json:"sentence_audio_info"`
}

type updateTranscriptionPayload struct {
	UpdatedSentences []sentencePayload `json:"updated_sentences"`
}

type referenceResponse struct {
	ReferenceAudio struct {
		artifactPayload
		Text string `json:"text"`
	} `json:"reference_audio"`
}

type cloneRequestPayload struct {
	ReferenceAudioURL string            `json:"reference_audio_url"`
	Sentences         []sentencePayload `json:"sentences"`
}

type cloneResponse struct {
	Clones []sentencePayload `json:"cloned_audio_info"`
}

type regenerateRequestPayload struct {
	SentenceID        int64  `json:"sentence_id"`
	Text              string `json:"text"`
	ReferenceAudioURL string `json:"reference_audio_url"`
}

type regenerateResponse struct {
	UpdatedSentence sentencePayload `json:"updated_sentence"`
}

type mergeRequestPayload struct {
	Clones []sentencePayload `json:"cloned_audio"`
}

type mergeResponse struct {
	MergedAudio artifactPayload `json:"merged_audio"`
}

type subtitleRequestPayload struct {
	Sentences []sentencePayload `json:"sentences"`
}

type subtitleResponse struct {
	GeneratedSRT artifactPayload `json:"generated_srt"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}
