package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskloop/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskloop",
		Short: "TaskLoop API Server",
		Long:  `TaskLoop is a personal task management backend with recurring task and project generation, daily goals, and interactive day scheduling.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
