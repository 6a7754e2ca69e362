package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meterwatch/alert-server-go/internal/app"
	"github.com/meterwatch/alert-server-go/internal/config"
	"github.com/meterwatch/alert-server-go/internal/database"
	"github.com/meterwatch/alert-server-go/internal/mirror"
	"github.com/meterwatch/alert-server-go/internal/portal"
)

var loginCmd = &cobra.Command{
	Use:   "login <phone> <password>",
	Short: "Log into the portal and print the user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := portal.NewClient(cfg.Portal).Login(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts <appUserId> <roleId>",
	Short: "List billing accounts with their balances",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := portal.NewClient(cfg.Portal).ListAccounts(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices <appUserId> <roleKey> [pageNum] [pageSize]",
	Short: "List one page of devices",
	Args:  cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageNum, err := intArg(args, 2, 1)
		if err != nil {
			return err
		}
		pageSize, err := intArg(args, 3, 15)
		if err != nil {
			return err
		}

		list, err := portal.NewClient(cfg.Portal).ListDevices(cmd.Context(), args[0], args[1], pageNum, pageSize)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror <appUserId> <roleKey> [pageSize]",
	Short: "Copy every device and its latest reading into the database",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSize, err := intArg(args, 2, config.DefaultMirrorPageSize)
		if err != nil {
			return err
		}
		if err := cfg.Database.Validate(); err != nil {
			return err
		}

		db, err := app.OpenDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := mirror.New(portal.NewClient(cfg.Portal), db).Run(cmd.Context(), args[0], args[1], pageSize)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the email, device and data tables if missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			ddl, err := database.Schema(cfg.Database.Driver)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), ddl)
			return err
		}
		if err := cfg.Database.Validate(); err != nil {
			return err
		}

		db, err := app.OpenDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := database.Migrate(cmd.Context(), db.Conn())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements for %s\n", n, cfg.Database.Driver)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "portalctl %s\n", Version)
	},
}

// intArg parses args[i] as a positive integer, or returns def when absent.
func intArg(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("argument %q must be a positive integer", args[i])
	}
	return n, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
