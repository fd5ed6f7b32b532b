// Package e2e holds container backed tests for the telemetry backends.
package e2e

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient reads back what the simulator wrote to InfluxDB.
type InfluxClient struct {
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a client for an already running server.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// Count returns the number of records of measurement written in the last
// hour, optionally restricted to one field.
func (c *InfluxClient) Count(ctx context.Context, measurement, field string) (int, error) {
	flux := `from(bucket:"` + c.bucket + `") |> range(start: -1h) |> filter(fn: (r) => r._measurement == "` + measurement + `")`
	if field != "" {
		flux += ` |> filter(fn: (r) => r._field == "` + field + `")`
	}
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// Close releases the client.
func (c *InfluxClient) Close() { c.client.Close() }
