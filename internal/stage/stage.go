package stage

import (
	"context"
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
)

// Info describes a stage instance's identity.
type Info struct {
	// ID is the stage kind, e.g. "cutset".
	ID          string
	Name        string
	Description string
	// Split is the split the instance processes; empty for dataset-wide stages.
	Split string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("stage: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("stage: name is required for %s", i.ID)
	}
	return nil
}

// Label renders the stage for logs, e.g. "cutset[train]".
func (i Info) Label() string {
	if i.Split == "" {
		return i.ID
	}
	return i.ID + "[" + i.Split + "]"
}

// Result captures the outcome of a stage execution.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates stage run outcomes.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNoOp      Status = "no-op"
	StatusFailed    Status = "failed"
)

// Stage is one idempotent step of a dataset pipeline. IsComplete must be
// cheap and side-effect free; the executor skips Run when it reports true and
// verifies Outputs after Run.
type Stage interface {
	Info() Info
	Inputs() []artifact.ManifestRef
	Outputs() []artifact.ManifestRef
	IsComplete(sc *Context) (bool, error)
	Run(ctx context.Context, sc *Context) (Result, error)
}

// Verifier is implemented by stages whose post-run outputs depend on what was
// already on disk. The executor prefers Verify over Outputs when checking a
// run.
type Verifier interface {
	Verify(sc *Context) ([]artifact.ManifestRef, error)
}
