// Command chefconnect browses recipes and manages local user data.
package main

import (
	"context"
	"os"

	"github.com/roach88/chefconnect/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
