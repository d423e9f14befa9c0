package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"github.com/conduitml/conduit/pkg/client"
	"github.com/conduitml/conduit/pkg/log"
	"github.com/conduitml/conduit/pkg/schemas"
	"github.com/conduitml/conduit/pkg/tracing"
)

const defaultListLimit = 20

func apiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Base URL of the remote pipeline service",
			Value:   "https://api.conduitml.dev",
			Sources: cli.EnvVars("CONDUIT_API_URL"),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the remote pipeline service",
			Sources: cli.EnvVars("CONDUIT_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export a span per remote call over OTLP",
			Sources: cli.EnvVars("CONDUIT_TRACING"),
		},
	}
}

func newClient(ctx context.Context, command *cli.Command) (*client.Client, error) {
	log.Setup(command.String("log-level"))

	opts := []client.Option{
		client.WithLogger(log.WithModule("tags")),
	}

	if command.Bool("tracing") {
		tracer, err := tracing.NewTracer(ctx, "conduit-cli")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		opts = append(opts, client.WithTracer(tracer))
	}

	return client.New(
		command.String("api-url"),
		command.String("api-key"),
		opts...,
	), nil
}

// NewTagsCommand manages pipeline tags on the remote service.
func NewTagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Manage pipeline tags",
		Commands: []*cli.Command{
			newTagsCreateCommand("create"),
			newTagsCreateCommand("update"),
			newTagsGetCommand(),
			newTagsListCommand(),
			newTagsDeleteCommand(),
		},
	}
}

// newTagsCreateCommand builds the create and update subcommands, which
// share their argument shape: a source (tag or pipeline ID) and a target
// tag name.
func newTagsCreateCommand(verb string) *cli.Command {
	usage := "Point a new tag at a pipeline"
	if verb == "update" {
		usage = "Point an existing tag at a different pipeline"
	}

	return &cli.Command{
		Name:      verb,
		Usage:     usage,
		ArgsUsage: "SOURCE TARGET",
		Flags:     apiFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 2 {
				return cli.Exit("expected arguments: SOURCE TARGET", 1)
			}

			source := command.Args().Get(0)
			target := command.Args().Get(1)

			api, err := newClient(ctx, command)
			if err != nil {
				return err
			}

			var tag *schemas.TagGet

			if verb == "create" {
				tag, err = api.CreateTag(ctx, source, target)
			} else {
				tag, err = api.UpdateTag(ctx, source, target)
			}

			if err != nil {
				if client.IsInvalidTagName(err) {
					return cli.Exit(err.Error(), 1)
				}

				return fmt.Errorf("failed to %s tag: %w", verb, err)
			}

			fmt.Printf("Tag '%s' -> '%s'\n", tag.Name, tag.PipelineID)

			return nil
		},
	}
}

func newTagsGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a tag",
		ArgsUsage: "NAME:TAG",
		Flags:     apiFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 1 {
				return cli.Exit("expected argument: NAME:TAG", 1)
			}

			api, err := newClient(ctx, command)
			if err != nil {
				return err
			}

			tag, err := api.GetTag(ctx, command.Args().First())
			if err != nil {
				if client.IsInvalidTagName(err) {
					return cli.Exit(err.Error(), 1)
				}

				return fmt.Errorf("failed to fetch tag: %w", err)
			}

			printTags([]schemas.TagGet{*tag})

			return nil
		},
	}
}

func newTagsListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tags, newest first",
		Flags: append(apiFlags(),
			&cli.IntFlag{
				Name:  "skip",
				Usage: "Number of tags to skip",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tags to return",
				Value: defaultListLimit,
			},
			&cli.StringFlag{
				Name:  "pipeline-id",
				Usage: "Only list tags pointing at this pipeline",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			api, err := newClient(ctx, command)
			if err != nil {
				return err
			}

			page, err := api.ListTags(ctx, command.Int("skip"), command.Int("limit"), command.String("pipeline-id"))
			if err != nil {
				return fmt.Errorf("failed to list tags: %w", err)
			}

			printTags(page.Data)

			return nil
		},
	}
}

func newTagsDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a tag",
		ArgsUsage: "NAME:TAG",
		Flags:     apiFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 1 {
				return cli.Exit("expected argument: NAME:TAG", 1)
			}

			tagName := command.Args().First()

			api, err := newClient(ctx, command)
			if err != nil {
				return err
			}

			if err := api.DeleteTag(ctx, tagName); err != nil {
				if client.IsInvalidTagName(err) {
					return cli.Exit(err.Error(), 1)
				}

				return fmt.Errorf("failed to delete tag: %w", err)
			}

			fmt.Printf("Deleted %s\n", tagName)

			return nil
		},
	}
}

func printTags(tags []schemas.TagGet) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTARGET")

	for _, tag := range tags {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tag.ID, tag.Name, tag.PipelineID)
	}

	_ = w.Flush()
}
