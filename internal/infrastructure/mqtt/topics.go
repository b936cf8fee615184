package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "smarthome"

// Topics builds the MQTT topics used by the registry.
//
//	topics := mqtt.NewTopics("smarthome")
//	topics.DeviceCreated("lamp-1") // "smarthome/devices/lamp-1/created"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder rooted at prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string {
	return t.prefix
}

// levelEscaper percent-encodes the characters that would split a topic
// level or turn it into a wildcard. '%' is encoded first so the mapping
// stays reversible.
var levelEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	"+", "%2B",
	"#", "%23",
	"\x00", "%00",
)

// EscapeLevel encodes s for use as a single topic level.
//
// Example: "lamp/1#a" -> "lamp%2F1%23a"
func EscapeLevel(s string) string {
	return levelEscaper.Replace(s)
}

// DeviceCreated returns the topic announcing a newly registered device.
// The device ID always occupies exactly one level.
//
// Example: smarthome/devices/lamp-1/created
func (t Topics) DeviceCreated(deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/created", t.prefix, EscapeLevel(deviceID))
}

// AllDeviceEvents matches every device lifecycle topic.
//
// Pattern: smarthome/devices/+/+
func (t Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/devices/+/+", t.prefix)
}

// SystemStatus returns the retained core status topic.
//
// Example: smarthome/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix)
}
