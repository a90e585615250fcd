// Command urioracle verifies storage-URI migration tools against a reference
// model.
package main

import (
	"os"

	"github.com/roach88/urioracle/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
