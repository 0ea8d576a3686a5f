// Command relorm-sql is a small cobra-based CLI exercising the bootstrap
// path: its one subcommand, ping, loads a config file, opens a Database and
// reports success. It does not create or reconcile tables. Grounded on Pieczasz-smf's cmd/smf CLI
// structure (root command with subcommands, flag-bound options struct).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/relorm/relorm"
	_ "github.com/relorm/relorm/drivers/postgres"
	_ "github.com/relorm/relorm/drivers/sqlite"
	"github.com/relorm/relorm/logger"
	"github.com/relorm/relorm/rconfig"
)

type pingFlags struct {
	configPath string
	timeout    int
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "relorm-sql",
		Short: "relorm bootstrap and diagnostic CLI",
	}

	rootCmd.AddCommand(pingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func pingCmd() *cobra.Command {
	flags := &pingFlags{}
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Open the configured database and report success",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPing(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "relorm.toml", "path to the TOML config file")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 10, "connection timeout in seconds")
	return cmd
}

func runPing(flags *pingFlags) error {
	cfg, err := rconfig.Load(flags.configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	conn, err := relorm.OpenDriver(ctx, cfg.Driver, cfg.DriverConfig())
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	log := logger.NewDefault("relorm-sql", 64)
	log.SetLevel(cfg.ParsedLogLevel())
	defer log.Close()

	db := relorm.Open(conn, relorm.WithLogger(log))
	defer db.Close()

	fmt.Printf("connected to %s via %s\n", cfg.DSN, cfg.Driver)
	return nil
}
