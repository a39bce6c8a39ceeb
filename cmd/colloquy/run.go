package main

import (
	"fmt"
	"os"

	"github.com/colloquyhq/colloquy/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive conversation",
	Long:  `Starts the Colloquy engine in interactive mode with the flow definitions from the flows directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		flowsPath, _ := cmd.Flags().GetString("flows")
		if !cmd.Flags().Changed("flows") && len(args) > 0 {
			flowsPath = args[0]
		}

		opts := cli.RunOptions{FlowsPath: flowsPath}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.RedisURL, _ = cmd.Flags().GetString("redis")
		opts.StateDir, _ = cmd.Flags().GetString("state-dir")

		if err := cli.Execute(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Conversation id to resume or create")
	runCmd.Flags().Bool("fresh", false, "Discard any saved state for the session before starting")
	runCmd.Flags().Bool("debug", false, "Enable debug logging of lifecycle events")
	runCmd.Flags().Bool("json", false, "Emit one JSON object per turn instead of rendered text")
	runCmd.Flags().String("redis", "", "Redis URL for shared session state (defaults to local files)")
	runCmd.Flags().String("state-dir", "", "Directory for file-based session state")

	// Make 'run' the default if no command is provided
	rootCmd.Run = runCmd.Run
}
