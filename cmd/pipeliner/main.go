package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	zlog "github.com/mcpdeliver/pipeliner/pkg/log"
)

var log *zap.Logger

var (
	rootCmd = &cobra.Command{
		Use:   "pipeliner",
		Short: "Delivery pipeline for the MCP query service",
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dump run history from the daemon",
	}
)

func initCommands() {
	dumpCmd.AddCommand(makeDumpRunsCommand())
	rootCmd.AddCommand(makeRunCommand())
	rootCmd.AddCommand(dumpCmd)
}

func init() {
	log = zlog.InitCli()
	initCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s", err.Error())
		os.Exit(1)
	}
}
