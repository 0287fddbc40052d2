package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	serviceName    = "feelcard-service"
	serviceVersion = "1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. --config and --log-level may also be
// given as FEELCARD_CONFIG and FEELCARD_LOG_LEVEL.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FEELCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "feelcard",
		Short:         "Turn short spoken utterances into feeling cards",
		Version:       serviceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Override logging level (debug, info, warn, error)")
	v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newServeCmd(v),
		newGenerateCmd(v),
		newListCmd(v),
		newExportCmd(v),
	)
	return root
}
