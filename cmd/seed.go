package cmd

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

type seedRequest struct {
	name     string
	phone    string
	pos      geo.Point
	supplies []string
}

var demoRequests = []seedRequest{
	{"Community Health Post", "+91123456", geo.Point{Lat: 28.7041, Lng: 77.1025}, []string{"bandages", "water"}},
	{"Elder Home", "+91123457", geo.Point{Lat: 28.71, Lng: 77.11}, []string{"meds", "water"}},
	{"School", "+91123458", geo.Point{Lat: 28.695, Lng: 77.09}, []string{"food packs", "blankets"}},
}

var seedOpts struct {
	pause  time.Duration
	spike  int
	spread float64
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Submit a demo scenario to a running simulator",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().DurationVar(&seedOpts.pause, "pause", 600*time.Millisecond, "pause between scripted requests")
	seedCmd.Flags().IntVar(&seedOpts.spike, "spike", 6, "number of concurrent requests in the demand spike")
	seedCmd.Flags().Float64Var(&seedOpts.spread, "spread", 0.006, "spike spread in degrees")
	rootCmd.AddCommand(seedCmd)
}

// runSeed submits every request even when some fail, and reports the
// failures once all of them were sent.
func runSeed(cmd *cobra.Command, args []string) error {
	c := newAPIClient(serverURL)
	var (
		mu     sync.Mutex
		failed int
		total  int
	)
	post := func(s seedRequest) {
		var r model.Request
		body := submitBody(s.name, s.phone, s.pos.Lat, s.pos.Lng, s.supplies)
		err := c.do(cmd.Context(), http.MethodPost, "/api/requests", body, &r)
		mu.Lock()
		defer mu.Unlock()
		total++
		if err != nil {
			failed++
			cmd.PrintErrf("error sending %s: %v\n", s.name, err)
			return
		}
		printRequest(cmd, r)
	}

	for i, s := range demoRequests {
		if i > 0 {
			time.Sleep(seedOpts.pause)
		}
		post(s)
	}

	spike := spikeRequests(geo.Point{Lat: 28.706, Lng: 77.103}, seedOpts.spread, seedOpts.spike, rand.New(rand.NewSource(time.Now().UnixNano())))
	var wg sync.WaitGroup
	for _, s := range spike {
		wg.Add(1)
		go func(s seedRequest) {
			defer wg.Done()
			post(s)
		}(s)
	}
	wg.Wait()
	if failed > 0 {
		return fmt.Errorf("seed: %d of %d requests failed", failed, total)
	}
	return nil
}

// spikeRequests scatters n requests uniformly in a square of half-width
// spread/2 around center.
func spikeRequests(center geo.Point, spread float64, n int, rng *rand.Rand) []seedRequest {
	out := make([]seedRequest, n)
	for i := range out {
		out[i] = seedRequest{
			name:  fmt.Sprintf("House %d", i+1),
			phone: fmt.Sprintf("+91%d", 900000000+i+1),
			pos: geo.Point{
				Lat: center.Lat + (rng.Float64()-0.5)*spread,
				Lng: center.Lng + (rng.Float64()-0.5)*spread,
			},
			supplies: []string{"water", "first-aid"},
		}
	}
	return out
}
