// Command tgscrap runs a personal Telegram automation agent on an
// already-authenticated user account. It answers dot-prefixed commands
// sent to that account and bulk-relays message windows the account can
// access back to authorized requesters.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath string
		debug      bool
	)

	root := &cobra.Command{
		Use:           "tgscrap",
		Short:         "Telegram userbot that relays message windows to authorized users",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, configPath, debug)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (optional, env vars apply on top)")
	root.Flags().BoolVar(&debug, "debug", false, "verbose development logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tgscrap:", err)
		os.Exit(1)
	}
}
