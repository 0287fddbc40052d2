package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	var (
		audioPath string
		mimeType  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once on a recorded utterance and print the card",
		RunE: func(cmd *cobra.Command, args []string) error {
			captured, err := os.ReadFile(audioPath)
			if err != nil {
				return fmt.Errorf("failed to read audio: %w", err)
			}
			if len(captured) == 0 {
				return fmt.Errorf("audio file %s is empty", audioPath)
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if mimeType != "" {
				cfg.Model.CaptureMIME = mimeType
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.pipeline.Run(ctx, captured)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(item)
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Path to the recorded utterance")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type of the recording (default from configuration)")
	cmd.MarkFlagRequired("audio")
	return cmd
}
