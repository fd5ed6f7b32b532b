// Package export writes journal entries in formats suited to spreadsheets
// and offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/dronedispatch/core/journal"
)

// WriteJSON writes the entries to w as a JSON array.
func WriteJSON(w io.Writer, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	return json.NewEncoder(w).Encode(entries)
}

// WriteCSV writes the entries to w with a header row.
func WriteCSV(w io.Writer, entries []journal.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "kind", "request_id", "drone_id", "lat", "lng", "detail"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			string(e.Kind),
			e.RequestID,
			e.AgentID,
			strconv.FormatFloat(e.Position.Lat, 'f', -1, 64),
			strconv.FormatFloat(e.Position.Lng, 'f', -1, 64),
			e.Detail,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
