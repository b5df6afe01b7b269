package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the vikunja-mcp application
var rootCmd = &cobra.Command{
	Use:   "vikunja-mcp",
	Short: "MCP server for Vikunja task management",
	Long: `vikunja-mcp exposes a Vikunja instance to AI assistants over the
Model Context Protocol (MCP).

It provides tools for listing, creating, and updating tasks, for validating
and building task filter expressions, and for managing session-scoped saved
filters. Task listings are filtered server-side when the Vikunja instance
accepts the filter expression, with a local evaluation fallback when it
does not.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "vikunja-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vikunja-mcp version %s\n", version)
		},
	}
}
