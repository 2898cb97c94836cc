// Command forge runs step workflows whose long-running work executes as
// supervised background actions.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/forge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
