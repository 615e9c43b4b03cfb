package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fatoora/internal/app"
	"github.com/odyssey-erp/fatoora/jobs"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Enqueue background jobs",
	}
	trigger := &cobra.Command{
		Use:   "trigger",
		Short: "Enqueue a job immediately",
	}

	var tenantFlag string
	warmup := &cobra.Command{
		Use:   "analytics-warmup",
		Short: "Rebuild cached dashboards for one or all tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tenantID *uuid.UUID
			if tenantFlag != "" {
				id, err := uuid.Parse(tenantFlag)
				if err != nil {
					return fmt.Errorf("invalid --tenant: %w", err)
				}
				tenantID = &id
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer client.Close()
			info, err := client.EnqueueAnalyticsWarmup(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s (id %s)\n", info.Type, info.Queue, info.ID)
			return nil
		},
	}
	warmup.Flags().StringVar(&tenantFlag, "tenant", "", "limit the warmup to one tenant ID")

	trigger.AddCommand(warmup)
	cmd.AddCommand(trigger)
	return cmd
}
