// Package workflow implements the step-gated dubbing pipeline: the stage
// order and gating rules, status projection from committed session state,
// and the manager that runs each stage as a single gateway call followed by
// a store commit.
package workflow
