// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers can register
// hooks at startup to receive events about project assembly and cargo
// invocations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetAssemblyHooks(&myAssemblyHooks{})
//	    observability.SetCargoHooks(&myCargoHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Cargo().OnCargoStart(ctx, "fetch", dir)
//	// ... run cargo ...
//	observability.Cargo().OnCargoComplete(ctx, "fetch", dir, code, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Assembly Hooks
// =============================================================================

// AssemblyHooks receives events from the project assembler.
type AssemblyHooks interface {
	// OnStage records a state transition of the assembler.
	OnStage(ctx context.Context, stage string)

	// OnBatch records the completion of one batch sub-project.
	OnBatch(ctx context.Context, batch, packages int, duration time.Duration, err error)

	// OnWarning records a non-fatal problem with a package.
	OnWarning(ctx context.Context, pkg, message string)
}

// =============================================================================
// Cargo Hooks
// =============================================================================

// CargoHooks receives events from cargo invocations.
type CargoHooks interface {
	// OnCargoStart records the start of a cargo subcommand.
	OnCargoStart(ctx context.Context, subcommand, dir string)

	// OnCargoComplete records the end of a cargo subcommand.
	OnCargoComplete(ctx context.Context, subcommand, dir string, exitCode int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopAssemblyHooks is a no-op implementation of AssemblyHooks.
type NoopAssemblyHooks struct{}

func (NoopAssemblyHooks) OnStage(context.Context, string)                         {}
func (NoopAssemblyHooks) OnBatch(context.Context, int, int, time.Duration, error) {}
func (NoopAssemblyHooks) OnWarning(context.Context, string, string)               {}

// NoopCargoHooks is a no-op implementation of CargoHooks.
type NoopCargoHooks struct{}

func (NoopCargoHooks) OnCargoStart(context.Context, string, string) {}
func (NoopCargoHooks) OnCargoComplete(context.Context, string, string, int, time.Duration, error) {
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	assemblyHooks AssemblyHooks = NoopAssemblyHooks{}
	cargoHooks    CargoHooks    = NoopCargoHooks{}
	hooksMu       sync.RWMutex
)

// SetAssemblyHooks registers custom assembly hooks.
// This should be called once at application startup before any assembly.
func SetAssemblyHooks(h AssemblyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		assemblyHooks = h
	}
}

// SetCargoHooks registers custom cargo hooks.
// This should be called once at application startup before cargo is invoked.
func SetCargoHooks(h CargoHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cargoHooks = h
	}
}

// Assembly returns the registered assembly hooks.
func Assembly() AssemblyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return assemblyHooks
}

// Cargo returns the registered cargo hooks.
func Cargo() CargoHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cargoHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	assemblyHooks = NoopAssemblyHooks{}
	cargoHooks = NoopCargoHooks{}
}
