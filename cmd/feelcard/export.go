package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skypro1111/feelcard-service/internal/export"
)

func newExportCmd(v *viper.Viper) *cobra.Command {
	var (
		out   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the newest cards to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Index.DefaultLimit
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.pipeline.List(ctx, limit)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if err := export.WriteTimeline(w, items); err != nil {
				return err
			}
			if out != "-" {
				a.logger.WithField("path", out).WithField("cards", len(items)).Info("Timeline exported")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "timeline.xlsx", "Output file, or - for stdout")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of cards (default from configuration)")
	return cmd
}
