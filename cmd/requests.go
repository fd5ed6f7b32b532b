package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/core/model"
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request"},
	Short:   "Supply request commands",
}

var lsStatus string

var requestsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List supply requests",
	RunE:  runRequestsLs,
}

var submit struct {
	name, phone string
	lat, lng    float64
	supplies    []string
}

var requestsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a supply request",
	RunE:  runRequestsSubmit,
}

var requestsDispatchCmd = &cobra.Command{
	Use:   "dispatch <id>",
	Short: "Retry dispatch of a queued request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsDispatch,
}

func init() {
	requestsLsCmd.Flags().StringVar(&lsStatus, "status", "", "only list requests with this status")
	f := requestsSubmitCmd.Flags()
	f.StringVar(&submit.name, "name", "", "requester name")
	f.StringVar(&submit.phone, "phone", "", "requester phone")
	f.Float64Var(&submit.lat, "lat", 0, "delivery latitude")
	f.Float64Var(&submit.lng, "lng", 0, "delivery longitude")
	f.StringSliceVar(&submit.supplies, "supplies", nil, "comma separated supplies")
	_ = requestsSubmitCmd.MarkFlagRequired("lat")
	_ = requestsSubmitCmd.MarkFlagRequired("lng")
	requestsCmd.AddCommand(requestsLsCmd, requestsSubmitCmd, requestsDispatchCmd)
	rootCmd.AddCommand(requestsCmd)
}

func runRequestsLs(cmd *cobra.Command, args []string) error {
	path := "/api/requests"
	if lsStatus != "" {
		path += "?status=" + url.QueryEscape(lsStatus)
	}
	var reqs []model.Request
	if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, path, nil, &reqs); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tDRONE\tREQUESTER\tSUPPLIES")
	for _, r := range reqs {
		drone := r.AssignedAgentID
		if drone == "" {
			drone = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, drone, r.Requester.Name, strings.Join(r.Supplies, ","))
	}
	return tw.Flush()
}

func runRequestsSubmit(cmd *cobra.Command, args []string) error {
	body := submitBody(submit.name, submit.phone, submit.lat, submit.lng, submit.supplies)
	var r model.Request
	if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/requests", body, &r); err != nil {
		return err
	}
	printRequest(cmd, r)
	return nil
}

func runRequestsDispatch(cmd *cobra.Command, args []string) error {
	var r model.Request
	if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/requests/"+args[0]+"/dispatch", nil, &r); err != nil {
		return err
	}
	printRequest(cmd, r)
	return nil
}

func submitBody(name, phone string, lat, lng float64, supplies []string) map[string]any {
	return map[string]any{"name": name, "phone": phone, "lat": lat, "lng": lng, "supplies": supplies}
}

func printRequest(cmd *cobra.Command, r model.Request) {
	if r.AssignedAgentID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", r.ID, r.Status, r.AssignedAgentID)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.ID, r.Status)
}
