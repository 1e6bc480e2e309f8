// Package wew embeds a browser engine behind a small Go API.
//
// A process using wew plays one of two roles. The orchestrating process
// creates the process-wide Runtime, drives its message loop, and owns
// WebView handles. Content-execution subprocesses are spawned by the engine
// with a --type flag on their command line; a main function detects that
// with IsSubprocess, hands control to ExecuteSubprocess, and exits with the
// returned code without touching any other wew API.
//
// All view callbacks arrive on the engine thread: the loop goroutine owned
// by the runtime under MultiThreadedMessageLoop, or whichever goroutine
// calls RunMessageLoop or PollMessageLoop otherwise. Callbacks must not
// block; long work belongs on another goroutine.
package wew
