package workflow

import "revoice/internal/session"

// StageState pairs a stage with its current status.
type StageState struct {
	Stage  Stage
	Status StageStatus
}

// Summary is the full pipeline view: every stage in order plus the set of
// actions an operator may trigger right now.
type Summary struct {
	SessionID string
	Stages    []StageState
	Unlocked  []Stage
}

// stageDone reports whether the stage's committed artifact exists on the
// session. Statuses are a pure projection of committed state; nothing is
// stored per stage.
func stageDone(sess *session.Session, stage Stage) bool {
	if sess == nil {
		return false
	}
	switch stage {
	case StageUpload:
		return sess.HasUpload()
	case StageRecognize:
		return sess.HasTranscript()
	case StageSplit:
		return sess.HasSentences()
	case StageSubmitEdits:
		return sess.EditsSubmitted
	case StageReferenceUpload:
		return sess.HasReference()
	case StageClone:
		return sess.HasClones()
	case StageMerge:
		return sess.HasMerged()
	case StageSubtitle:
		return sess.HasSubtitles()
	}
	return false
}

// stageStatus derives one stage's status from the session and the in-flight
// set. Upload is always ready; ReferenceUpload needs only a session to write
// into. Everything else is ready iff its direct predecessor is done.
func stageStatus(sess *session.Session, stage Stage, inflight map[Stage]struct{}) StageStatus {
	if _, busy := inflight[stage]; busy {
		return StatusInProgress
	}
	if stageDone(sess, stage) {
		return StatusDone
	}
	switch stage {
	case StageUpload:
		return StatusReady
	case StageReferenceUpload:
		if sess != nil {
			return StatusReady
		}
		return StatusLocked
	}
	if stageDone(sess, stage.Predecessor()) {
		return StatusReady
	}
	return StatusLocked
}

// Project computes the status of every stage. A done stage that can be run
// again (any of them can) still reports done; re-triggering is allowed and
// the downstream reset happens on completion, not on projection.
func Project(sess *session.Session, inflight map[Stage]struct{}) Summary {
	summary := Summary{Stages: make([]StageState, 0, len(Order))}
	if sess != nil {
		summary.SessionID = sess.ID
	}
	for _, stage := range Order {
		status := stageStatus(sess, stage, inflight)
		summary.Stages = append(summary.Stages, StageState{Stage: stage, Status: status})
		if status == StatusReady || status == StatusDone {
			summary.Unlocked = append(summary.Unlocked, stage)
		}
	}
	return summary
}

// StatusOf returns a single stage's status within the summary.
func (s Summary) StatusOf(stage Stage) StageStatus {
	for _, st := range s.Stages {
		if st.Stage == stage {
			return st.Status
		}
	}
	return StatusLocked
}
