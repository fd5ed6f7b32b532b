package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Scripted scenario commands",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <file>...",
	Short: "Replay scenario files against a headless simulation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	scenarioCmd.AddCommand(scenarioRunCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	var failed []error
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		res, err := scenarios.Run(sc, logger.New("scenario"))
		if err == nil {
			err = res.Check(sc.Expected)
		}
		status := "ok"
		if err != nil {
			status = "FAIL"
			failed = append(failed, fmt.Errorf("%s: %w", sc.Name, err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-4s %s: %d ticks, %d delivered, %d queued, %d in flight\n",
			status, sc.Name, res.Ticks, res.Delivered, res.Queued, res.InFlight)
	}
	return errors.Join(failed...)
}
