// Command myuni keeps a local cache of campus events in sync with the remote
// event collection and manages the signed-in student session.
package main

import (
	"context"
	"os"

	"github.com/roach88/myuni/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
