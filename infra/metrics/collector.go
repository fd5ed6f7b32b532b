package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/dronedispatch/core/events"
	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// StartEventCollector subscribes to request events and forwards them to sinks
// implementing RequestRecorder. It stops when the context is canceled or the
// bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.RequestRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe(events.TopicNewRequest, events.TopicRequestUpdate)
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				var ev2 coremetrics.RequestEvent
				switch p := ev.Payload.(type) {
				case events.NewRequest:
					ev2 = coremetrics.RequestEvent{RequestID: p.Request.ID, Status: p.Request.Status, Time: time.Now()}
				case events.RequestUpdate:
					ev2 = coremetrics.RequestEvent{RequestID: p.Request.ID, Status: p.Request.Status, Time: time.Now()}
				default:
					continue
				}
				_ = rec.RecordRequest(ev2)
			}
		}
	}()
}
