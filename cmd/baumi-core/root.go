package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "baumi-core",
		Short: "Baumi knowledge base and chat API",
		Long: `baumi-core serves the Baumi chat widget: administrators upload product and
FAQ knowledge bases, and visitor questions are answered by a chat model whose
system prompt is built from that knowledge.

Without a subcommand the API server is started.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")

	cmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "baumi-core %s\n", version)
		},
	}
}
