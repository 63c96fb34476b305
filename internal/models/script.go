// Package models defines the domain types for Tempura.
package models

import "time"

// ScriptMeta describes one user script discovered in the source directory.
type ScriptMeta struct {
	// Name is the script's registry key: the file stem without extension.
	Name string `json:"name"`
	// Path is the source path relative to the source directory.
	Path string `json:"path"`
	// Description is the leading comment block of the source, if any.
	Description string `json:"description,omitempty"`
	// Exports lists symbol names exported by the source.
	Exports   []string  `json:"exports,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMeta is a lightweight representation returned by storage list operations.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Build states reported in Status.
const (
	BuildStateIdle      = "idle"
	BuildStateBuilding  = "building"
	BuildStateSucceeded = "succeeded"
	BuildStateFailed    = "failed"
)

// Status is a snapshot of the most recent build-and-deploy run.
type Status struct {
	State string `json:"state"`
	// Trigger records what started the run: "startup", "watch", "api",
	// "mcp" or "cli".
	Trigger    string        `json:"trigger,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitzero"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
	Duration   time.Duration `json:"duration_ns"`
	// Scripts lists the sources that fed the aggregate artifact.
	Scripts []ScriptMeta `json:"scripts"`
	// ArtifactPath is where the aggregate landed, empty when not configured.
	ArtifactPath     string       `json:"artifact_path,omitempty"`
	ArtifactChecksum string       `json:"artifact_checksum,omitempty"`
	Deployed         []CopyReport `json:"deployed,omitempty"`
	// Error holds the surfaced failure text when State is "failed".
	Error string `json:"error,omitempty"`
}

// CopyReport summarizes one deploy-map pair after a run.
type CopyReport struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	// Copied counts files written this run, Transpiled the subset that went
	// through the compiler, Skipped the files left alone because the
	// destination already had identical content.
	Copied     int `json:"copied"`
	Transpiled int `json:"transpiled"`
	Skipped    int `json:"skipped"`
}
