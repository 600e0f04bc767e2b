package workflow

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage identifies one step of the dubbing pipeline.
type Stage string

const (
	StageUpload          Stage = "upload"
	StageRecognize       Stage = "recognize"
	StageSplit           Stage = "split"
	StageSubmitEdits     Stage = "submit_edits"
	StageReferenceUpload Stage = "reference_upload"
	StageClone           Stage = "clone"
	StageMerge           Stage = "merge"
	StageSubtitle        Stage = "subtitle"
)

// Order lists every stage in pipeline order. ReferenceUpload sits between
// SubmitEdits and Clone for display purposes only; it is a root of its own
// branch and gates nothing upstream.
var Order = []Stage{
	StageUpload,
	StageRecognize,
	StageSplit,
	StageSubmitEdits,
	StageReferenceUpload,
	StageClone,
	StageMerge,
	StageSubtitle,
}

// predecessors maps each stage to the single stage whose completion unlocks
// it. Upload and ReferenceUpload have none: they are always available once a
// session can hold their result.
var predecessors = map[Stage]Stage{
	StageRecognize:   StageUpload,
	StageSplit:       StageRecognize,
	StageSubmitEdits: StageSplit,
	StageClone:       StageReferenceUpload,
	StageMerge:       StageClone,
	StageSubtitle:    StageMerge,
}

// Predecessor returns the gating stage, or "" for a root stage.
func (s Stage) Predecessor() Stage {
	return predecessors[s]
}

var titleCaser = cases.Title(language.English)

// Label returns a human-readable stage name for status output.
func (s Stage) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// StageStatus is the lifecycle position of a single stage.
type StageStatus string

const (
	StatusLocked     StageStatus = "locked"
	StatusReady      StageStatus = "ready"
	StatusInProgress StageStatus = "in-progress"
	StatusDone       StageStatus = "done"
)
