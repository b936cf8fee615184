package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementHTTPRequests   = "http_requests"
	MeasurementDeviceRegistry = "device_registry"
	MeasurementWSMessages     = "ws_messages"
)

// WriteRequest records one served API request.
//
// Parameters:
//   - method: HTTP method
//   - route: Route pattern (e.g. /devices/{device_id}), never the raw path
//   - status: Response status code
//   - duration: Time spent serving the request
func (c *Client) WriteRequest(method, route string, status int, duration time.Duration) {
	c.WritePoint(MeasurementHTTPRequests,
		map[string]string{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		},
		map[string]any{
			"duration_ms": float64(duration.Microseconds()) / 1000,
			"count":       1,
		},
	)
}

// WriteDeviceRegistered records a successful device registration.
func (c *Client) WriteDeviceRegistered(deviceID, deviceType string) {
	c.WritePoint(MeasurementDeviceRegistry,
		map[string]string{
			"device_type": deviceType,
		},
		map[string]any{
			"device_id": deviceID,
			"count":     1,
		},
	)
}

// WriteEchoMessage records one echoed WebSocket text message.
func (c *Client) WriteEchoMessage(size int) {
	c.WritePoint(MeasurementWSMessages,
		nil,
		map[string]any{
			"bytes": size,
			"count": 1,
		},
	)
}

// WritePoint writes a point with the current time. Dropped when disconnected.
//
// Example:
//
//	client.WritePoint("registry_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]any{"devices": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
