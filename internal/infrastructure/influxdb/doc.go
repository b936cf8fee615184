// Package influxdb records registry telemetry in InfluxDB v2.
//
// It wraps influxdb-client-go v2 and writes three measurements:
//   - http_requests: one point per API request (method, route, status, duration)
//   - device_registry: one point per registered device
//   - ws_messages: one point per echoed WebSocket message
//
// Writes are non-blocking and batched (batch_size, flush_interval). Write
// failures arrive asynchronously through the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDeviceRegistered("lamp-1", "light")
//
// All methods are safe for concurrent use.
package influxdb
