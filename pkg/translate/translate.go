package translate

import (
	"fmt"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
	"github.com/matzehuels/cargo-lock-fetch/pkg/lockfile"
	"github.com/matzehuels/cargo-lock-fetch/pkg/registry"
)

// Dependency is a manifest-ready dependency specification.
// Empty fields are omitted from the rendered table.
type Dependency struct {
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`
	Git      string `json:"git,omitempty" yaml:"git,omitempty"`
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Branch   string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Rev      string `json:"rev,omitempty" yaml:"rev,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`

	DefaultFeatures bool `json:"default-features" yaml:"default-features"`
}

// Table returns the dependency as a TOML table.
func (d Dependency) Table() map[string]any {
	t := map[string]any{"default-features": d.DefaultFeatures}
	for key, value := range map[string]string{
		"version":  d.Version,
		"registry": d.Registry,
		"git":      d.Git,
		"tag":      d.Tag,
		"branch":   d.Branch,
		"rev":      d.Rev,
		"path":     d.Path,
	} {
		if value != "" {
			t[key] = value
		}
	}
	return t
}

// Warning is a non-fatal translation problem.
type Warning struct {
	Package string `json:"package" yaml:"package"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string { return w.Package + ": " + w.Message }

// NotReproducible is the warning message for git sources that only name a
// branch: what gets fetched depends on when the fetch happens.
const NotReproducible = "git branch without a precise commit is not reproducible"

// Translate returns the dependency entry for package name at version
// fetched from src. Registry endpoints are given aliases from aliases.
//
// A git source with nothing but a branch is translated and reported through
// the returned warning. An [lockfile.OtherSource] fails with an
// UNSUPPORTED_SOURCE error.
func Translate(name string, src lockfile.Source, version string, aliases *registry.AliasTable) (Dependency, *Warning, error) {
	id := name + "@" + version

	var (
		dep  Dependency
		warn *Warning
	)
	switch s := src.(type) {
	case lockfile.PathSource:
		dep = Dependency{Path: s.FilePath()}
	case lockfile.GitSource:
		dep, warn = translateGit(s)
		if warn != nil {
			warn.Package = id
		}
	case lockfile.RegistrySource:
		alias := aliases.GetOrCreate(registry.EndpointKey(s.Endpoint, s.Sparse))
		dep = Dependency{Version: "=" + version, Registry: alias}
	case lockfile.OtherSource:
		return Dependency{}, nil, errors.Wrap(errors.ErrCodeUnsupportedSource,
			&lockfile.UnsupportedSourceError{Kind: s.Kind()}, "package %s", id)
	case nil:
		return Dependency{}, nil, errors.New(errors.ErrCodeInternal, "package %s has no source", id)
	default:
		return Dependency{}, nil, errors.New(errors.ErrCodeInternal, "package %s: unhandled source type %T", id, src)
	}

	dep.DefaultFeatures = false
	return dep, warn, nil
}

func translateGit(s lockfile.GitSource) (Dependency, *Warning) {
	dep := Dependency{Git: s.Repo}
	switch {
	case s.Precise != "":
		dep.Rev = s.Precise
	case s.Ref.Kind == lockfile.RefTag:
		dep.Tag = s.Ref.Name
	case s.Ref.Kind == lockfile.RefRev:
		dep.Rev = s.Ref.Name
	default:
		// Cargo.lock always records the precise commit, so this only happens
		// for hand-edited lockfiles.
		dep.Branch = s.Repo
		return dep, &Warning{Message: NotReproducible}
	}
	return dep, nil
}

// Local returns the path dependency used to reference a generated
// sub-project from its parent.
func Local(dir string) Dependency {
	return Dependency{Path: dir}
}

// Describe renders dep as an inline TOML table for log output.
func Describe(dep Dependency) string {
	switch {
	case dep.Registry != "":
		return fmt.Sprintf("{ version = %q, registry = %q }", dep.Version, dep.Registry)
	case dep.Git != "":
		switch {
		case dep.Rev != "":
			return fmt.Sprintf("{ git = %q, rev = %q }", dep.Git, dep.Rev)
		case dep.Tag != "":
			return fmt.Sprintf("{ git = %q, tag = %q }", dep.Git, dep.Tag)
		default:
			return fmt.Sprintf("{ git = %q, branch = %q }", dep.Git, dep.Branch)
		}
	default:
		return fmt.Sprintf("{ path = %q }", dep.Path)
	}
}
