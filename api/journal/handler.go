// Package journal exposes the dispatch journal over HTTP.
package journal

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/dronedispatch/api/respond"
	corejournal "github.com/kilianp07/dronedispatch/core/journal"
	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/pkg/export"
)

// NewHandler returns an HTTP handler exposing journal entries via
// GET /api/journal. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty. format=csv switches the body to
// CSV.
func NewHandler(store corejournal.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			respond.Error(w, err)
			return
		}
		entries, err := store.Query(r.Context(), q)
		if err != nil {
			respond.Error(w, err)
			return
		}
		switch r.URL.Query().Get("format") {
		case "", "json":
			w.Header().Set("Content-Type", "application/json")
			_ = export.WriteJSON(w, entries)
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="journal.csv"`)
			_ = export.WriteCSV(w, entries)
		default:
			respond.Error(w, fmt.Errorf("format must be json or csv: %w", model.ErrInvalidInput))
		}
	})
}

func parseQuery(r *http.Request) (corejournal.Query, error) {
	v := r.URL.Query()
	q := corejournal.Query{
		Kind:      corejournal.Kind(v.Get("kind")),
		RequestID: v.Get("request_id"),
		AgentID:   v.Get("drone_id"),
	}
	for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		if s := v.Get(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return q, fmt.Errorf("%s must be RFC3339: %w", key, model.ErrInvalidInput)
			}
			*dst = t
		}
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("limit must be a non-negative integer: %w", model.ErrInvalidInput)
		}
		q.Limit = n
	}
	return q, nil
}
