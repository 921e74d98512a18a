package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/cargo-lock-fetch/pkg/batch"
	"github.com/matzehuels/cargo-lock-fetch/pkg/lockfile"
	"github.com/matzehuels/cargo-lock-fetch/pkg/observability"
	"github.com/matzehuels/cargo-lock-fetch/pkg/registry"
	"github.com/matzehuels/cargo-lock-fetch/pkg/translate"
)

const (
	// RootName is the package name of the generated root project.
	RootName = "lock-fetch-root"

	// BatchPrefix is prepended to the 1-based batch number to name sub-projects.
	BatchPrefix = "batch"
)

// Plan is the complete, deterministic description of the projects to create.
type Plan struct {
	Root             string                          `json:"root" yaml:"root"`
	Batches          []BatchPlan                     `json:"batches" yaml:"batches"`
	RootDependencies map[string]translate.Dependency `json:"root_dependencies" yaml:"root_dependencies"`
	Registries       []registry.Entry                `json:"registries" yaml:"registries"`
	Skipped          []string                        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Warnings         []translate.Warning             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// BatchPlan describes one sub-project.
type BatchPlan struct {
	Name         string                          `json:"name" yaml:"name"`
	Packages     []string                        `json:"packages" yaml:"packages"`
	Dependencies map[string]translate.Dependency `json:"dependencies" yaml:"dependencies"`
	// Registries is the alias table as it stood after this batch was
	// translated; it covers every alias the batch's dependencies use.
	Registries []registry.Entry `json:"registries" yaml:"registries"`
}

// PackageCount returns the number of packages across all batches.
func (p *Plan) PackageCount() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.Packages)
	}
	return n
}

// Digest returns a short fingerprint of the plan. Equal lockfiles yield
// equal digests.
func (p *Plan) Digest() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// BatchName returns the sub-project name of the n-th batch (1-based).
func BatchName(n int) string {
	return BatchPrefix + strconv.Itoa(n)
}

// NewPlan partitions pkgs into batches and translates every package.
// Packages without a source are skipped. The first translation failure
// aborts planning with an error naming the batch and package.
func NewPlan(ctx context.Context, pkgs []lockfile.Package, logger *log.Logger) (*Plan, error) {
	if logger == nil {
		logger = log.Default()
	}

	plan := &Plan{
		Root:             RootName,
		RootDependencies: make(map[string]translate.Dependency),
	}

	var items []batch.Item[string, lockfile.Package]
	for _, pkg := range pkgs {
		if pkg.IsLocal() {
			plan.Skipped = append(plan.Skipped, pkg.ID())
			continue
		}
		items = append(items, batch.Item[string, lockfile.Package]{Key: pkg.Name, Value: pkg})
	}
	if len(plan.Skipped) > 1 {
		plan.warn(ctx, logger, translate.Warning{
			Package: plan.Skipped[0],
			Message: fmt.Sprintf("%d packages without a source, ignoring all of them: %v", len(plan.Skipped), plan.Skipped),
		})
	}

	aliases := registry.NewAliasTable()
	n := 0
	for b := range batch.Partition(items) {
		n++
		bp := BatchPlan{
			Name:         BatchName(n),
			Dependencies: make(map[string]translate.Dependency, b.Len()),
		}
		for name, pkg := range b.All() {
			dep, warning, err := translate.Translate(name, pkg.Source, pkg.Version, aliases)
			if err != nil {
				return nil, fmt.Errorf("batch %d: %w", n, err)
			}
			if warning != nil {
				plan.warn(ctx, logger, *warning)
			}
			logger.Debug("translated package", "batch", n, "package", pkg.ID(), "dependency", translate.Describe(dep))
			bp.Packages = append(bp.Packages, pkg.ID())
			bp.Dependencies[name] = dep
		}
		bp.Registries = aliases.Entries()
		plan.Batches = append(plan.Batches, bp)
		plan.RootDependencies[bp.Name] = translate.Local(bp.Name)
	}
	plan.Registries = aliases.Entries()

	for _, e := range plan.Registries {
		logger.Debug("registry alias", "alias", e.Alias, "endpoint", e.Endpoint)
	}
	logger.Info("planned batches", "batches", len(plan.Batches), "packages", plan.PackageCount(), "registries", len(plan.Registries))
	return plan, nil
}

func (p *Plan) warn(ctx context.Context, logger *log.Logger, w translate.Warning) {
	p.Warnings = append(p.Warnings, w)
	logger.Warn(w.Message, "package", w.Package)
	observability.Assembly().OnWarning(ctx, w.Package, w.Message)
}
