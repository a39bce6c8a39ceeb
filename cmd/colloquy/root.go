package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "colloquy",
	Short: "Colloquy is a task-oriented dialogue orchestration engine",
	Long:  `Colloquy runs stack-based, interruptible conversation flows defined in simple YAML files.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("flows", "flows", "Directory containing flow definitions")
}
