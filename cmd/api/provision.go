package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/V4T54L/tabletop/internal/pkg/config"
	"github.com/V4T54L/tabletop/internal/pkg/logger"
	"github.com/V4T54L/tabletop/internal/pkg/token"
	"github.com/V4T54L/tabletop/internal/usecase"
)

func newProvisionCmd() *cobra.Command {
	var req usecase.ProvisionRequest
	var plain string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a tenant with its admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFile)
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if plain != "" {
				req.Password = token.Digest(plain)
			}
			res, err := usecase.NewProvisioner(store, usecase.NopAuditRecorder{}, log, nil).Provision(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.CompanyName, "company", "", "company name")
	flags.StringVar(&req.CompanyID, "company-id", "", "company id used at login")
	flags.StringVar(&req.UserPhone, "phone", "", "admin phone number")
	flags.StringVar(&req.UserName, "name", "", "admin name")
	flags.StringVar(&req.UserEmail, "email", "", "admin email")
	flags.StringVar(&plain, "password", "", "admin password in plain text")
	for _, name := range []string{"company", "company-id", "phone", "name", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
