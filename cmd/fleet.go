package cmd

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/core/model"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List drones of a running simulator",
	RunE:  runFleetLs,
}

var droneCmd = &cobra.Command{
	Use:   "drone",
	Short: "Drone related commands",
}

var (
	gotoLat float64
	gotoLng float64
)

var droneCommandCmd = &cobra.Command{
	Use:       "command <id> return|goto",
	Short:     "Send an operator command to a drone",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(model.CommandReturn), string(model.CommandGoto)},
	RunE:      runDroneCommand,
}

func init() {
	droneCommandCmd.Flags().Float64Var(&gotoLat, "lat", 0, "goto latitude")
	droneCommandCmd.Flags().Float64Var(&gotoLng, "lng", 0, "goto longitude")
	fleetCmd.AddCommand(fleetLsCmd)
	droneCmd.AddCommand(droneCommandCmd)
	rootCmd.AddCommand(fleetCmd, droneCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	var agents []model.Agent
	if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/drones", nil, &agents); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tBATTERY\tLAT\tLNG\tREQUEST")
	for _, a := range agents {
		req := "-"
		if a.Target != nil && a.Target.RequestID != "" {
			req = a.Target.RequestID
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.5f\t%.5f\t%s\n", a.ID, a.Status, a.Battery, a.Position.Lat, a.Position.Lng, req)
	}
	return tw.Flush()
}

func runDroneCommand(cmd *cobra.Command, args []string) error {
	body := map[string]any{"type": args[1]}
	if model.CommandType(args[1]) == model.CommandGoto {
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
			return fmt.Errorf("goto requires --lat and --lng")
		}
		body["lat"] = gotoLat
		body["lng"] = gotoLng
	}
	var a model.Agent
	if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/drones/"+args[0]+"/command", body, &a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", a.ID, a.Status)
	return nil
}
