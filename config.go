package wew

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RuntimeHandler receives process-wide runtime events.
type RuntimeHandler interface {
	// OnContextInitialized fires once, on the engine thread, when the
	// runtime is ready. WebViews may be created from this point on.
	OnContextInitialized()

	// OnScheduleMessagePumpWork is an advisory callback for the external
	// pump regime: the host should call PollMessageLoop after at most
	// delayMS milliseconds (0 means as soon as possible). It may fire on
	// any thread and is meaningless under the other two regimes.
	OnScheduleMessagePumpWork(delayMS int64)
}

// RuntimeSettings configures the process-wide runtime. The struct is copied
// by CreateRuntime and immutable afterwards.
type RuntimeSettings struct {
	// CacheDirPath is the engine's persistent cache directory. Empty means
	// in-memory only.
	CacheDirPath string

	// BrowserSubprocessPath points at the helper executable used for
	// content-execution subprocesses (see cmd/wew-helper). Empty runs
	// content in-process, single-process mode.
	BrowserSubprocessPath string

	// SchemeDirPath is a directory served by the custom scheme when
	// CustomScheme carries no handler of its own.
	SchemeDirPath string

	// WindowlessRenderingEnabled turns on off-screen rendering: views
	// paint into OnFrame buffers instead of a native window.
	WindowlessRenderingEnabled bool

	// ExternalMessagePump selects the host-driven pump regime: the host
	// calls PollMessageLoop, guided by OnScheduleMessagePumpWork.
	// Mutually exclusive with MultiThreadedMessageLoop.
	ExternalMessagePump bool

	// MultiThreadedMessageLoop gives the runtime its own loop goroutine.
	// RunMessageLoop and PollMessageLoop must not be called.
	MultiThreadedMessageLoop bool

	// MainBundlePath and FrameworkDirPath locate the engine bundle on
	// platforms that package it that way. Ignored elsewhere.
	MainBundlePath   string
	FrameworkDirPath string

	// CustomScheme registers one custom scheme intercept point.
	CustomScheme *CustomSchemeAttributes

	// FetchTimeout and MaxBodyBytes bound the default network pipeline.
	// Zero picks engine defaults (30s, 32MiB).
	FetchTimeout time.Duration
	MaxBodyBytes int64

	// Logger receives runtime diagnostics. Nil disables logging.
	Logger *zap.Logger
}

func (s *RuntimeSettings) validate() error {
	if s.ExternalMessagePump && s.MultiThreadedMessageLoop {
		return fmt.Errorf("%w: ExternalMessagePump and MultiThreadedMessageLoop are mutually exclusive", ErrInvalidSettings)
	}
	if s.CustomScheme != nil {
		if s.CustomScheme.Name == "" {
			return fmt.Errorf("%w: custom scheme needs a name", ErrInvalidSettings)
		}
		if s.CustomScheme.Handler == nil && s.SchemeDirPath == "" {
			return fmt.Errorf("%w: custom scheme %q has neither a handler nor SchemeDirPath", ErrInvalidSettings, s.CustomScheme.Name)
		}
	}
	if s.SchemeDirPath != "" && s.CustomScheme == nil {
		return fmt.Errorf("%w: SchemeDirPath needs a CustomScheme to serve it", ErrInvalidSettings)
	}
	return nil
}
