// Package mqtt publishes device registry events to an MQTT broker.
//
// The registry does not consume MQTT traffic. It announces lifecycle
// events (a device was registered) so that bridges and dashboards can
// react without polling the HTTP API.
//
//	Smart Home Core → MQTT Broker → Bridges / Dashboards
//
// # Topics
//
//	{prefix}/devices/{device_id}/created   device registered (not retained)
//	{prefix}/system/status                 core online/offline (retained, LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().DeviceCreated("living-room-lamp")
//	err = client.Publish(topic, payload, 1, false)
//
// TLS should be enabled (cfg.Broker.TLS) whenever the broker is not on localhost.
package mqtt
