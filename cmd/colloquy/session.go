package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/colloquyhq/colloquy/internal/adapters/file"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent conversations",
	Long:  `List, inspect, and remove conversations stored in the local state directory.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all saved conversations",
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		sessions, err := store.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing conversations: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("No saved conversations found.")
			return
		}

		fmt.Println("Saved conversations:")
		for _, s := range sessions {
			fmt.Println("- " + s)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <conversation-id>",
	Short: "Inspect the state of a conversation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conversationID := args[0]
		store := getStore(cmd)

		state, err := store.Load(cmd.Context(), conversationID)
		if err != nil {
			fmt.Printf("Error loading conversation '%s': %v\n", conversationID, err)
			os.Exit(1)
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling state: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <conversation-id>...",
	Short: "Remove one or more conversations",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := getStore(cmd)
		hasError := false

		for _, conversationID := range args {
			if err := store.Delete(cmd.Context(), conversationID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", conversationID, err)
				hasError = true
			} else {
				fmt.Printf("Removed conversation '%s'\n", conversationID)
			}
		}

		if hasError {
			os.Exit(1)
		}
	},
}

func getStore(cmd *cobra.Command) *file.Store {
	dir, _ := cmd.Flags().GetString("state-dir")
	return file.New(dir)
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionCmd.PersistentFlags().String("state-dir", "", "Directory for file-based session state")
}
