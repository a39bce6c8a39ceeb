package main

import (
	"fmt"
	"os"

	"github.com/colloquyhq/colloquy/internal/compiler"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check flow definitions for consistency",
	Long:  `Compiles every flow in the directory and reports schema errors, duplicate step ids, and dangling branch or jump targets.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("flows")
	if len(args) > 0 {
		dir = args[0]
	}

	flows, err := compiler.New().LoadDir(dir)
	if err != nil {
		return err
	}

	for _, flow := range flows {
		fmt.Printf("✔ %s (%d steps)\n", flow.Name, len(flow.Steps))
	}
	fmt.Printf("%d flow(s) valid.\n", len(flows))
	return nil
}
