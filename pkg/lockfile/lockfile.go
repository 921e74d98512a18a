package lockfile

import (
	"os"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
)

// Package is one [[package]] entry of a Cargo.lock.
type Package struct {
	Name         string
	Version      string
	Source       Source // nil for the workspace's own packages
	Checksum     string
	Dependencies []string
}

// ID returns the package identity as "name@version".
func (p Package) ID() string { return p.Name + "@" + p.Version }

// IsLocal reports whether the package has no source and so belongs to the
// project the lockfile was generated for.
func (p Package) IsLocal() bool { return p.Source == nil }

// Lockfile is a loaded Cargo.lock.
type Lockfile struct {
	Version  int // lockfile format version, 0 when absent (format v1)
	Packages []Package
}

// Local returns the packages without a source, in file order.
func (l *Lockfile) Local() []Package {
	var out []Package
	for _, p := range l.Packages {
		if p.IsLocal() {
			out = append(out, p)
		}
	}
	return out
}

// Remote returns the packages with a source, in file order.
func (l *Lockfile) Remote() []Package {
	var out []Package
	for _, p := range l.Packages {
		if !p.IsLocal() {
			out = append(out, p)
		}
	}
	return out
}

type rawLockfile struct {
	Version int          `toml:"version"`
	Package []rawPackage `toml:"package"`
}

type rawPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Checksum     string   `toml:"checksum"`
	Dependencies []string `toml:"dependencies"`
}

// Load reads and parses the Cargo.lock at path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "lockfile %s not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read lockfile %s", path)
	}
	lf, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "parse lockfile %s", path)
	}
	return lf, nil
}

// Parse decodes Cargo.lock content.
func Parse(data []byte) (*Lockfile, error) {
	var raw rawLockfile
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "decode TOML")
	}

	lf := &Lockfile{
		Version:  raw.Version,
		Packages: make([]Package, 0, len(raw.Package)),
	}
	for i, rp := range raw.Package {
		pkg, err := rp.toPackage()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "package #%d", i+1)
		}
		lf.Packages = append(lf.Packages, pkg)
	}
	return lf, nil
}

func (rp rawPackage) toPackage() (Package, error) {
	if err := errors.ValidateCrateName(rp.Name); err != nil {
		return Package{}, err
	}
	if !semver.IsValid("v" + rp.Version) {
		return Package{}, errors.New(errors.ErrCodeInvalidLockfile, "%s: invalid version %q", rp.Name, rp.Version)
	}

	pkg := Package{
		Name:         rp.Name,
		Version:      rp.Version,
		Checksum:     rp.Checksum,
		Dependencies: rp.Dependencies,
	}
	if rp.Source != "" {
		src, err := ParseSource(rp.Source)
		if err != nil {
			return Package{}, err
		}
		pkg.Source = src
	}
	return pkg, nil
}
