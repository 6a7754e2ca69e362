package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meterwatch/alert-server-go/internal/app"
	"github.com/meterwatch/alert-server-go/internal/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var cfg *config.PortalctlConfig

var rootCmd = &cobra.Command{
	Use:           "portalctl",
	Short:         "Utility portal command line client",
	Long:          `Log into the billing portal, list accounts and devices, mirror devices into the database and create its tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load[config.PortalctlConfig]()
		if err != nil {
			return err
		}
		cfg = loaded
		app.SetLogLevel(cfg.LogLevel)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "print the DDL instead of applying it")
	rootCmd.AddCommand(loginCmd, accountsCmd, devicesCmd, mirrorCmd, migrateCmd, versionCmd)
}

func main() {
	app.SetupLogging()

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
