package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fatoora/internal/tenant"
)

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Register a tenant and print its API key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			svc := tenant.NewService(tenant.NewRepository(rt.pool), rt.redis, rt.logger)
			t, key, err := svc.Register(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant_id: %s\napi_key:   %s\n", t.ID, key)
			fmt.Fprintln(cmd.ErrOrStderr(), "store the key now, it cannot be shown again")
			return nil
		},
	})
	return cmd
}
