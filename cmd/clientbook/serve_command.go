package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clientbook/internal/gateway"
	"clientbook/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if value := strings.TrimSpace(bind); value != "" {
				cfg.Server.Bind = value
			}

			if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, check := range failed {
					names = append(names, fmt.Sprintf("%s (%s)", check.Name, check.Detail))
				}
				return fmt.Errorf("preflight failed: %s", strings.Join(names, "; "))
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			srv, err := gateway.New(cfg, store, ctx.log())
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind for this run")
	return cmd
}
