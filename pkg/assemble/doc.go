// Package assemble builds the scratch cargo projects a lockfile is fetched
// through.
//
// # Overview
//
// Cargo cannot fetch a Cargo.lock on its own; it needs a manifest that
// depends on every locked package, and one manifest cannot name the same
// package twice. Assembly therefore works in two steps:
//
//  1. [NewPlan] partitions the lockfile's packages into conflict-free
//     batches and translates every package into a dependency entry. It is
//     pure apart from logging and performs no I/O.
//  2. [Assembler.Assemble] materializes the plan: a root project, one
//     sub-project per batch named batch1, batch2, ..., and finally the root's
//     path dependencies on all batches.
//
// The resulting tree under the root directory looks like:
//
//	root/
//	├── Cargo.toml          # depends on batch1 ... batchN by path
//	├── .cargo/config.toml  # every registry alias
//	├── batch1/
//	│   ├── Cargo.toml      # one version of each package name
//	│   └── .cargo/config.toml
//	└── batch2/ ...
//
// Running cargo fetch or cargo vendor in root then downloads every package
// of the lockfile at its exact version. Invoking cargo for that is left to
// the caller.
//
// # Local packages
//
// Packages without a source are the project the lockfile belongs to. They
// are never batched. A lockfile of a workspace legitimately has several of
// them; they are all skipped and the plan carries a warning so the caller
// can report it.
package assemble
