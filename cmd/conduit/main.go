package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "conduit",
		Usage:                 "Define, test and deploy ML pipelines",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewTagsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
