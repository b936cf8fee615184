// Package api implements the HTTP API and WebSocket echo channel of the
// smart home device registry.
//
// Routes:
//   - GET /                   welcome payload
//   - GET /health             liveness probe
//   - GET /devices/           every device, oldest first
//   - GET /devices/{device_id} one device, 404 when unknown
//   - POST /devices/          register a device (stored offline, no properties)
//   - GET /ws                 echo channel: "server received: <text>"
//
// Every store access runs in its own transaction (device.Store.WithSession)
// that commits before the response is written. Devices are rebuilt from
// their stored record on every response.
//
// # Optional integrations
//
// When Deps.Events is set, each registration is announced on
// {prefix}/devices/{device_id}/created. When Deps.Telemetry is set, requests,
// registrations and echoed messages are recorded. Both are best-effort: a
// failure is logged and never changes the HTTP response.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
