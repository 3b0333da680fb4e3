// Package main is the entry point for the rules server
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rules-api",
	Short: "Rules and economy authority for narrated adventures",
	Long: `rules-api is the authoritative rules core behind an LLM-narrated
adventure game: it resolves combat, rolls loot, gates every state change
the narrator proposes, and enforces daily token budgets.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
