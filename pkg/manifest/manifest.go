// Package manifest edits the Cargo files of generated projects.
//
// Two files are written: the [dependencies] table of a project's
// Cargo.toml, which is replaced wholesale, and the [registries] table of
// the project's .cargo/config.toml. Formatting is whatever the TOML encoder
// produces; only the meaning of the files matters to cargo.
package manifest

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/cargo-lock-fetch/pkg/errors"
	"github.com/matzehuels/cargo-lock-fetch/pkg/registry"
	"github.com/matzehuels/cargo-lock-fetch/pkg/translate"
)

const (
	// ManifestFile is the name of a project manifest.
	ManifestFile = "Cargo.toml"
	// ConfigFile is the project-local cargo configuration, relative to the project.
	ConfigFile = ".cargo/config.toml"
)

// Read decodes the Cargo.toml in dir.
func Read(dir string) (map[string]any, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	doc := make(map[string]any)
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "decode %s", path)
	}
	return doc, nil
}

// WriteDependencies replaces the [dependencies] table of the Cargo.toml in
// dir with deps. Everything else in the manifest is kept.
func WriteDependencies(dir string, deps map[string]translate.Dependency) error {
	doc, err := Read(dir)
	if err != nil {
		return err
	}

	table := make(map[string]any, len(deps))
	for name, dep := range deps {
		table[name] = dep.Table()
	}
	doc["dependencies"] = table

	return write(filepath.Join(dir, ManifestFile), doc)
}

// WriteRegistries writes .cargo/config.toml in dir, declaring one registry
// per alias entry.
func WriteRegistries(dir string, entries []registry.Entry) error {
	cargoDir := filepath.Join(dir, filepath.Dir(ConfigFile))
	if err := os.MkdirAll(cargoDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", cargoDir)
	}

	registries := make(map[string]any, len(entries))
	for _, e := range entries {
		registries[e.Alias] = map[string]any{"index": registry.IndexURL(e.Endpoint)}
	}
	return write(filepath.Join(dir, ConfigFile), map[string]any{"registries": registries})
}

// ReadRegistries returns the alias to index mapping declared in the
// .cargo/config.toml of dir.
func ReadRegistries(dir string) (map[string]string, error) {
	path := filepath.Join(dir, ConfigFile)
	var cfg struct {
		Registries map[string]struct {
			Index string `toml:"index"`
		} `toml:"registries"`
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	out := make(map[string]string, len(cfg.Registries))
	for alias, r := range cfg.Registries {
		out[alias] = r.Index
	}
	return out, nil
}

func write(path string, doc map[string]any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	return nil
}
