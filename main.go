package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Conversational assistant for the fall-detection platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var demo bool
	var account string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the relational schema, optionally with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), demo, account)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed demo devices, patients and events")
	cmd.Flags().StringVar(&account, "account", "demo-account", "account granted access to the demo devices")
	return cmd
}
