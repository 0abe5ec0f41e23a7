package types

import (
	"time"
)

// RunState is the outcome of a deploy run
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// StepRecord is the outcome of one deploy step
type StepRecord struct {
	Step      string        `json:"step"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Skipped   bool          `json:"skipped,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Expansion records the capacity change applied before the swap, so the
// shrink step can restore the original bounds
type Expansion struct {
	PriorDesired int  `json:"prior_desired"`
	PriorMax     int  `json:"prior_max"`
	Desired      int  `json:"desired"`
	Max          int  `json:"max"`
	Bumped       bool `json:"bumped"`
}

// Run is the record of one deploy run
type Run struct {
	ID                  string       `json:"id"`
	App                 string       `json:"app"`
	Environment         string       `json:"environment"`
	Version             string       `json:"version"`
	Fleet               string       `json:"fleet"`
	LaunchTemplate      string       `json:"launch_template"`
	PriorLaunchTemplate string       `json:"prior_launch_template,omitempty"`
	ImageID             string       `json:"image_id,omitempty"`
	State               RunState     `json:"state"`
	Error               string       `json:"error,omitempty"`
	StartedAt           time.Time    `json:"started_at"`
	FinishedAt          time.Time    `json:"finished_at"`
	Steps               []StepRecord `json:"steps"`
	Expansion           *Expansion   `json:"expansion,omitempty"`
	NewInstance         string       `json:"new_instance,omitempty"`
	Retired             []string     `json:"retired,omitempty"`
	DeletedImages       []string     `json:"deleted_images,omitempty"`
	DeletedSnapshots    []string     `json:"deleted_snapshots,omitempty"`
}
