package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiverse-platform/publish-engine/internal/adapter/repository"
	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var seedProfile, seedUser string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := repository.OpenDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := repository.Migrate(db); err != nil {
				return err
			}
			slog.Info("migration complete")

			if seedProfile == "" {
				return nil
			}
			now := time.Now().UTC()
			profile := &domain.DeveloperProfile{
				ID:            seedProfile,
				UserID:        seedUser,
				PaymentStatus: domain.PaymentStatusActive,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := repository.NewProfileRepo(db).Upsert(context.Background(), profile); err != nil {
				return err
			}
			slog.Info("seeded developer profile", "developer_id", seedProfile, "user_id", seedUser)
			return nil
		},
	}
	cmd.Flags().StringVar(&seedProfile, "seed-profile", "", "create an active developer profile with this id (local development)")
	cmd.Flags().StringVar(&seedUser, "seed-user", "local-user", "user id owning the seeded profile")
	return cmd
}
