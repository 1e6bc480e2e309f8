package wew

import (
	"os"
	"strings"

	"github.com/mycrl/wew-go/internal/content"
)

// IsSubprocess reports whether this process was launched by the engine as a
// content-execution subprocess. Call it first thing in main: when it returns
// true the process must run ExecuteSubprocess and exit with its result, and
// must not call any other wew API.
func IsSubprocess() bool {
	return isSubprocessArgs(os.Args)
}

func isSubprocessArgs(args []string) bool {
	for _, a := range args {
		if strings.Contains(a, "--type") {
			return true
		}
	}
	return false
}

// ExecuteSubprocess runs the content-execution role to completion and
// returns the process exit code. setup, when non-nil, runs once per view
// context and is where subprocess-side code registers its message callback;
// pass nil when the host exchanges no page messages.
func ExecuteSubprocess(args []string, setup func(*WebViewMessageChannel)) int {
	var wrap func(*content.Context)
	if setup != nil {
		wrap = func(c *content.Context) {
			setup(&WebViewMessageChannel{endpoint: c.Channel})
		}
	}
	return content.Loop(os.Stdin, os.Stdout, wrap)
}
