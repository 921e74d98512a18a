// Package translate turns lockfile sources into Cargo dependency entries.
//
// # Rules
//
// [Translate] maps each [lockfile.Source] variant to the fields of a
// Cargo.toml dependency table:
//
//   - path: {path = "<dir>"}
//   - git with a precise commit: {git = "<repo>", rev = "<commit>"}
//   - git with a tag: {git = "<repo>", tag = "<tag>"}
//   - git with a rev: {git = "<repo>", rev = "<rev>"}
//   - git with only a branch: {git = "<repo>", branch = "<repo>"} plus a [Warning]
//   - registry or sparse registry: {version = "=<version>", registry = "<alias>"}
//
// Every entry also carries default-features = false so that vendoring a
// pinned package never pulls in features, and with them other versions,
// that the lockfile did not ask for.
//
// Registry aliases come from the [registry.AliasTable] passed in, which is
// updated as new endpoints are seen.
//
// [lockfile.Source]: github.com/matzehuels/cargo-lock-fetch/pkg/lockfile.Source
// [registry.AliasTable]: github.com/matzehuels/cargo-lock-fetch/pkg/registry.AliasTable
package translate
