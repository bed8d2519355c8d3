// Command marketctl is the operator CLI for the marketplace database:
// schema migrations and bearer token minting.
package main

import (
	"os"

	"github.com/tripbazaar/backend/cmd/marketctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
