package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Enrich one user's portfolio once and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.portfolios.Refresh(ctx, userID)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", userID, err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", localUserID, "User whose holdings are enriched")
	return cmd
}
