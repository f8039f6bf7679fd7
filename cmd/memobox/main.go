package main

import (
	"fmt"
	"os"

	"github.com/mwantia/memobox/cmd/memobox/cli"
	"github.com/mwantia/memobox/cmd/memobox/cli/client"
	"github.com/mwantia/memobox/cmd/memobox/cli/server"
	"github.com/mwantia/memobox/pkg/errdefs"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	root := cli.NewRootCommand(cli.VersionInfo{
		Version: version,
		Commit:  commit,
	})

	root.AddCommand(cli.NewVersionCommand())

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())
	root.AddCommand(server.NewMigrateCommand())

	root.AddCommand(client.NewItemCommand())
	root.AddCommand(client.NewTagCommand())
	root.AddCommand(client.NewStorageCommand())

	if err := root.Execute(); err != nil {
		if msg := errdefs.Message(err); msg != err.Error() {
			fmt.Fprintf(os.Stderr, "%s (%v)\n", msg, err)
		} else {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
