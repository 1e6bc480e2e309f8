// wew-helper is the content-execution subprocess executable. Point
// RuntimeSettings.BrowserSubprocessPath at the built binary.
package main

import (
	"os"

	wew "github.com/mycrl/wew-go"
)

func main() {
	os.Exit(wew.ExecuteSubprocess(os.Args, nil))
}
