// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about build phases, library state changes, downloads,
// extractions and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so no import cycles arise.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetDownloadHooks(&myDownloadHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Extract().OnExtractStart(ctx, "zlib", "zlib-1.3.1.tar.gz")
//	// ... extract ...
//	observability.Extract().OnExtractComplete(ctx, "zlib", "zlib-1.3.1.tar.gz", files, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the build pipeline.
type PipelineHooks interface {
	// Phase events
	OnPhaseStart(ctx context.Context, runID, phase string)
	OnPhaseComplete(ctx context.Context, runID, phase string, duration time.Duration, err error)

	// OnLibraryState records a library moving between acquisition states.
	OnLibraryState(ctx context.Context, runID, lib, from, to string)
}

// =============================================================================
// Download Hooks
// =============================================================================

// DownloadHooks receives events from archive downloads.
type DownloadHooks interface {
	// OnDownloadAttempt records the start of one attempt (1-based).
	OnDownloadAttempt(ctx context.Context, url string, attempt int)

	// OnDownloadComplete records the final outcome after all attempts.
	OnDownloadComplete(ctx context.Context, url string, size int64, attempts int, duration time.Duration, err error)
}

// =============================================================================
// Extract Hooks
// =============================================================================

// ExtractHooks receives events from archive extraction.
type ExtractHooks interface {
	OnExtractStart(ctx context.Context, lib, archive string)
	OnExtractComplete(ctx context.Context, lib, archive string, files int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnPhaseStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnPhaseComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopPipelineHooks) OnLibraryState(context.Context, string, string, string, string) {}

// NoopDownloadHooks is a no-op implementation of DownloadHooks.
type NoopDownloadHooks struct{}

func (NoopDownloadHooks) OnDownloadAttempt(context.Context, string, int) {}
func (NoopDownloadHooks) OnDownloadComplete(context.Context, string, int64, int, time.Duration, error) {
}

// NoopExtractHooks is a no-op implementation of ExtractHooks.
type NoopExtractHooks struct{}

func (NoopExtractHooks) OnExtractStart(context.Context, string, string)                            {}
func (NoopExtractHooks) OnExtractComplete(context.Context, string, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	downloadHooks DownloadHooks = NoopDownloadHooks{}
	extractHooks  ExtractHooks  = NoopExtractHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetDownloadHooks registers custom download hooks.
func SetDownloadHooks(h DownloadHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		downloadHooks = h
	}
}

// SetExtractHooks registers custom extract hooks.
func SetExtractHooks(h ExtractHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		extractHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Download returns the registered download hooks.
func Download() DownloadHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return downloadHooks
}

// Extract returns the registered extract hooks.
func Extract() ExtractHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return extractHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	downloadHooks = NoopDownloadHooks{}
	extractHooks = NoopExtractHooks{}
	cacheHooks = NoopCacheHooks{}
}
