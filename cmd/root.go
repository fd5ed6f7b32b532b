package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/app"
	"github.com/kilianp07/dronedispatch/config"
	"github.com/kilianp07/dronedispatch/infra/logger"
)

var (
	cfgPath   string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "dronedispatch",
	Short: "Drone supply dispatch simulator",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults and K_ environment when empty)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:3000", "simulator base URL for client commands")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
