package wew

import "errors"

var (
	// ErrRuntimeAlreadyExists is returned by CreateRuntime when a live
	// runtime already exists in this process.
	ErrRuntimeAlreadyExists = errors.New("a runtime already exists in this process")

	// ErrRuntimeClosed is returned by runtime operations after Close.
	ErrRuntimeClosed = errors.New("runtime is closed")

	// ErrInvalidSettings is returned by CreateRuntime when the settings are
	// inconsistent, wrapped with the specific problem.
	ErrInvalidSettings = errors.New("invalid runtime settings")

	// ErrCreateWebViewFailed is returned by CreateWebView when the view
	// cannot be registered, wrapped with the underlying cause.
	ErrCreateWebViewFailed = errors.New("create webview failed")
)
