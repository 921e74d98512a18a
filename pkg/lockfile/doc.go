// Package lockfile loads Cargo.lock files.
//
// # Overview
//
// A Cargo.lock is a fully pinned list of packages. Each entry carries an exact
// version and, for anything that has to be downloaded, a source string such as
//
//	registry+https://github.com/rust-lang/crates.io-index
//	sparse+https://index.crates.io/
//	git+https://github.com/user/repo?tag=v1.0#0123abcd
//
// [Load] and [Parse] return the packages in file order. Entries without a
// source are the workspace's own packages; [Lockfile.Local] and
// [Lockfile.Remote] split the two sets.
//
// # Sources
//
// [Source] is a closed set of variants: [RegistrySource], [GitSource],
// [PathSource] and [OtherSource]. Consumers switch on the concrete type;
// [OtherSource] stands for any kind this package does not understand and is
// never an error at load time. Callers decide whether it is fatal.
//
// The dependency lists of packages are kept but not interpreted: the package
// list of a lockfile is already the transitive closure.
package lockfile
