package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnPhaseStart(ctx, "run-1", "dependencies")
	p.OnPhaseComplete(ctx, "run-1", "dependencies", time.Second, nil)
	p.OnLibraryState(ctx, "run-1", "zlib", "PENDING", "DOWNLOADING")

	// Download hooks
	d := NoopDownloadHooks{}
	d.OnDownloadAttempt(ctx, "https://zlib.net/zlib-1.3.1.tar.gz", 1)
	d.OnDownloadComplete(ctx, "https://zlib.net/zlib-1.3.1.tar.gz", 1024, 1, time.Second, nil)

	// Extract hooks
	e := NoopExtractHooks{}
	e.OnExtractStart(ctx, "zlib", "zlib-1.3.1.tar.gz")
	e.OnExtractComplete(ctx, "zlib", "zlib-1.3.1.tar.gz", 12, time.Second, errors.New("corrupt"))

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "mirror")
	c.OnCacheMiss(ctx, "mirror")
	c.OnCacheSet(ctx, "mirror", 64)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Download().(NoopDownloadHooks); !ok {
		t.Error("Download() should return NoopDownloadHooks by default")
	}
	if _, ok := Extract().(NoopExtractHooks); !ok {
		t.Error("Extract() should return NoopExtractHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customDownload := &testDownloadHooks{}
	SetDownloadHooks(customDownload)
	if Download() != customDownload {
		t.Error("SetDownloadHooks should set custom hooks")
	}

	customExtract := &testExtractHooks{}
	SetExtractHooks(customExtract)
	if Extract() != customExtract {
		t.Error("SetExtractHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Extract().(NoopExtractHooks); !ok {
		t.Error("Reset() should restore NoopExtractHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testDownloadHooks struct{ NoopDownloadHooks }
type testExtractHooks struct{ NoopExtractHooks }
type testCacheHooks struct{ NoopCacheHooks }
