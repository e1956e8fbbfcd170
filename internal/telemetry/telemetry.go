// Package telemetry records session and fulfillment metrics to InfluxDB.
//
// Telemetry is entirely optional: Recorder is nil-safe, so callers in the
// session and fulfillment packages can invoke it unconditionally and it
// becomes a no-op when no InfluxDB section is configured.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/houseflow/houseflow/internal/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
)

// Recorder writes control-plane metrics to InfluxDB. A nil *Recorder is
// valid and every method on it is a no-op, so components may hold an
// always-present Recorder field regardless of whether telemetry is
// configured.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu      sync.RWMutex
	onError func(err error)
	done    chan struct{}
}

// Connect establishes a connection to InfluxDB. It returns (nil, nil) when
// cfg is nil, which is the expected "telemetry disabled" path.
func Connect(ctx context.Context, cfg *config.InfluxDBConfig) (*Recorder, error) {
	if cfg == nil {
		return nil, nil
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, influxdb2.DefaultOptions())

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("telemetry: ping failed: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("telemetry: server not healthy")
	}

	r := &Recorder{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		done:     make(chan struct{}),
	}
	go r.drainWriteErrors(client.WriteAPI(cfg.Org, cfg.Bucket).Errors())
	return r, nil
}

func (r *Recorder) drainWriteErrors(errorsCh <-chan error) {
	for {
		select {
		case <-r.done:
			return
		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			r.mu.RLock()
			cb := r.onError
			r.mu.RUnlock()
			if cb != nil {
				cb(err)
			}
		}
	}
}

// OnError registers a callback invoked for asynchronous write failures.
func (r *Recorder) OnError(cb func(error)) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.onError = cb
	r.mu.Unlock()
}

// Close flushes pending writes and closes the connection.
func (r *Recorder) Close() {
	if r == nil || r.client == nil {
		return
	}
	r.writeAPI.Flush()
	close(r.done)
	r.client.Close()
}

// SessionConnected records a device session being established.
func (r *Recorder) SessionConnected(deviceID string) {
	r.point("session_connected", map[string]string{"device_id": deviceID}, map[string]any{"count": 1})
}

// SessionDisconnected records a device session tearing down.
func (r *Recorder) SessionDisconnected(deviceID string) {
	r.point("session_disconnected", map[string]string{"device_id": deviceID}, map[string]any{"count": 1})
}

// FulfillmentLatency records the wall-clock duration of an execute/query
// dispatch, tagged by its outcome (ok, timeout, error).
func (r *Recorder) FulfillmentLatency(deviceID, rpc, outcome string, d time.Duration) {
	r.point("fulfillment_latency",
		map[string]string{"device_id": deviceID, "rpc": rpc, "outcome": outcome},
		map[string]any{"duration_ms": float64(d.Microseconds()) / 1000.0},
	)
}

func (r *Recorder) point(measurement string, tags map[string]string, fields map[string]any) {
	if r == nil || r.writeAPI == nil {
		return
	}
	r.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
