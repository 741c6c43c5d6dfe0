package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/jobs"
	"github.com/iliyamo/farmhub/internal/queue"
	"github.com/iliyamo/farmhub/internal/report"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/service"
)

// newCheckMaterialsCmd runs the daily low-stock scan once.  Claims share
// the server's Redis keys, so a material already reported today is
// skipped.
func newCheckMaterialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-materials",
		Short: "Notify owners of materials below their minimum quantity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			db, err := e.open()
			if err != nil {
				return err
			}
			defer db.Close()

			rdb := config.NewRedisClient()
			if rdb != nil {
				defer rdb.Close()
			}
			notifSvc := service.NewNotificationService(repository.NewNotificationRepo(db))
			pub := queue.NewPublisher(config.LoadBrokerConfig(), e.log, notifSvc.Store)
			defer pub.Close()

			check := jobs.NewMaterialCheck(repository.NewMaterialRepo(db), jobs.NewClaimer(rdb), pub, e.log)
			sent, err := check.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notifications sent: %d\n", sent)
			return nil
		},
	}
}

func newExportHarvestsCmd() *cobra.Command {
	var (
		owner uint64
		out   string
	)
	cmd := &cobra.Command{
		Use:   "export-harvests",
		Short: "Write an owner's harvests to an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == 0 {
				return fmt.Errorf("--owner is required")
			}
			if out == "" {
				out = fmt.Sprintf("harvests-%d-%s.xlsx", owner, time.Now().Format("20060102"))
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			hs, err := repository.NewHarvestRepo(db).ListAll(ctx, owner, repository.HarvestFilter{})
			if err != nil {
				return err
			}
			names, err := repository.NewFieldRepo(db).NamesByOwner(ctx, owner)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := report.WriteHarvestWorkbook(&buf, hs, names); err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d harvests to %s\n", len(hs), out)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&owner, "owner", 0, "owner (farmer) user id")
	cmd.Flags().StringVar(&out, "out", "", "output file (default harvests-<owner>-<date>.xlsx)")
	return cmd
}

func newPurgeTokensCmd() *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete refresh tokens that expired or were revoked before the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			db, err := e.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if retention <= 0 {
				retention = e.cfg.TokenRetention
			}
			n, err := jobs.NewTokenCleanup(repository.NewTokenRepo(db), retention, e.log).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tokens deleted: %d\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 0, "keep dead tokens this long (default TOKEN_RETENTION)")
	return cmd
}
