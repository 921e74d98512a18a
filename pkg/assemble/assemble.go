package assemble

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cargo-lock-fetch/pkg/manifest"
	"github.com/matzehuels/cargo-lock-fetch/pkg/observability"
)

// ProjectCreator creates empty cargo projects. [cargo.Runner] is the
// production implementation.
//
// [cargo.Runner]: github.com/matzehuels/cargo-lock-fetch/pkg/cargo.Runner
type ProjectCreator interface {
	CreateProject(ctx context.Context, dir, name string) error
}

// Stage is the progress of an [Assembler].
type Stage int

const (
	StagePending Stage = iota
	StageInit
	StageBatchesCreated
	StageAggregated
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageBatchesCreated:
		return "batches-created"
	case StageAggregated:
		return "aggregated"
	default:
		return "pending"
	}
}

// Project is the assembled project tree.
type Project struct {
	Dir     string   // root project directory
	Batches []string // sub-project directories, in batch order
}

// Assembler writes a [Plan] to disk. An Assembler is used for a single run.
type Assembler struct {
	creator ProjectCreator
	logger  *log.Logger
	stage   Stage
}

// NewAssembler returns an assembler that creates projects with creator.
// If logger is nil, log.Default() is used.
func NewAssembler(creator ProjectCreator, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.Default()
	}
	return &Assembler{creator: creator, logger: logger}
}

// Stage returns the last stage the assembler completed.
func (a *Assembler) Stage() Stage { return a.stage }

// Assemble creates the root project in dir, one sub-project per batch of
// plan, and wires the sub-projects into the root. Batches are created in
// order; the first failure aborts and leaves what was written so far.
func (a *Assembler) Assemble(ctx context.Context, dir string, plan *Plan) (*Project, error) {
	if a.stage != StagePending {
		return nil, fmt.Errorf("assembler already used (stage %s)", a.stage)
	}

	if err := a.creator.CreateProject(ctx, dir, plan.Root); err != nil {
		return nil, fmt.Errorf("create root project: %w", err)
	}
	a.advance(ctx, StageInit)
	a.logger.Debug("created root project", "dir", dir, "name", plan.Root)

	project := &Project{Dir: dir}
	for i, b := range plan.Batches {
		start := time.Now()
		batchDir, err := a.createBatch(ctx, dir, b)
		observability.Assembly().OnBatch(ctx, i+1, len(b.Packages), time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i+1, err)
		}
		project.Batches = append(project.Batches, batchDir)
		a.logger.Info("created batch", "batch", b.Name, "packages", len(b.Packages))
	}
	a.advance(ctx, StageBatchesCreated)

	if err := manifest.WriteDependencies(dir, plan.RootDependencies); err != nil {
		return nil, fmt.Errorf("aggregate batches: %w", err)
	}
	if err := manifest.WriteRegistries(dir, plan.Registries); err != nil {
		return nil, fmt.Errorf("aggregate registries: %w", err)
	}
	a.advance(ctx, StageAggregated)

	return project, nil
}

func (a *Assembler) createBatch(ctx context.Context, root string, b BatchPlan) (string, error) {
	dir := filepath.Join(root, b.Name)
	if err := a.creator.CreateProject(ctx, dir, b.Name); err != nil {
		return "", err
	}
	if err := manifest.WriteDependencies(dir, b.Dependencies); err != nil {
		return "", err
	}
	if err := manifest.WriteRegistries(dir, b.Registries); err != nil {
		return "", err
	}
	return dir, nil
}

func (a *Assembler) advance(ctx context.Context, s Stage) {
	a.stage = s
	observability.Assembly().OnStage(ctx, s.String())
}
