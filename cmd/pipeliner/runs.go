package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpdeliver/pipeliner/pkg/client/pipeliner"
)

func makeDumpRunsCommand() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Dump recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpRuns(endpoint)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "Daemon endpoint")

	return cmd
}

func dumpRuns(endpoint string) error {
	client, err := pipeliner.NewClient(endpoint, os.Getenv("PIPELINER_TOKEN"))
	if err != nil {
		return err
	}

	runs, err := client.ListRuns()
	if err != nil {
		return err
	}

	for _, run := range runs {
		env := run.Environment
		if env == "" {
			env = "-"
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", run.ID, run.Trigger, env, run.Commit, run.Status)
	}

	return nil
}
