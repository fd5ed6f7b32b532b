// Package report renders an HTML overview of the fleet and the request
// ledger.
package report

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/dronedispatch/core/model"
)

// Source is the part of the simulation the report reads.
type Source interface {
	ListAgents() []model.Agent
	ListRequests() []model.Request
}

var requestStatuses = []model.RequestStatus{
	model.RequestPending,
	model.RequestAssigned,
	model.RequestQueued,
	model.RequestEnroute,
	model.RequestDelivered,
}

// Render writes a page with a battery chart per drone and the request
// status breakdown.
func Render(w io.Writer, agents []model.Agent, reqs []model.Request) error {
	battery := charts.NewBar()
	battery.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Drone battery"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Drone"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Battery (%)"}),
	)
	ids := make([]string, 0, len(agents))
	levels := make([]opts.BarData, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
		levels = append(levels, opts.BarData{Name: string(a.Status), Value: a.Battery})
	}
	battery.SetXAxis(ids).AddSeries("battery", levels)

	counts := make(map[model.RequestStatus]int, len(requestStatuses))
	for _, r := range reqs {
		counts[r.Status]++
	}
	slices := make([]opts.PieData, 0, len(requestStatuses))
	for _, st := range requestStatuses {
		if counts[st] > 0 {
			slices = append(slices, opts.PieData{Name: string(st), Value: counts[st]})
		}
	}
	status := charts.NewPie()
	status.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    "Requests by status",
		Subtitle: fmt.Sprintf("%d requests", len(reqs)),
	}))
	status.AddSeries("requests", slices)

	page := components.NewPage()
	page.PageTitle = "Drone dispatch report"
	page.AddCharts(battery, status)
	return page.Render(w)
}

// NewHandler serves GET /api/report.
func NewHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := Render(&buf, src.ListAgents(), src.ListRequests()); err != nil {
			http.Error(w, fmt.Sprintf("render report: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	})
}
