package device

import (
	"fmt"
	"maps"
	"slices"
)

// Status is the reported connectivity of a device.
// The zero value is StatusUnknown.
type Status int

// Status values. Any value may follow any other; there are no transition rules.
const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
	StatusError
)

// AllStatuses returns every defined Status.
func AllStatuses() []Status {
	return []Status{StatusUnknown, StatusOnline, StatusOffline, StatusError}
}

// String returns the wire and storage form of s.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return slices.Contains(AllStatuses(), s)
}

// ParseStatus converts the string form back to a Status.
func ParseStatus(v string) (Status, error) {
	for _, s := range AllStatuses() {
		if s.String() == v {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("%w: %q", ErrInvalidStatus, v)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Device is the in-memory view of one smart-home device.
//
// A Device is built fresh for each response and never shared between
// requests. Two Devices with the same DeviceID may coexist; uniqueness is
// enforced by the store only.
type Device struct {
	DeviceID   string
	Name       string
	DeviceType string

	status     Status
	properties map[string]any
}

// New returns a Device with StatusUnknown and no properties.
func New(deviceID, name, deviceType string) *Device {
	return &Device{
		DeviceID:   deviceID,
		Name:       name,
		DeviceType: deviceType,
		status:     StatusUnknown,
		properties: make(map[string]any),
	}
}

// Status returns the current status.
func (d *Device) Status() Status {
	return d.status
}

// SetStatus replaces the status.
func (d *Device) SetStatus(s Status) {
	d.status = s
}

// Property returns the value stored under key and whether it was present.
func (d *Device) Property(key string) (any, bool) {
	v, ok := d.properties[key]
	return v, ok
}

// SetProperty inserts or overwrites the value stored under key.
func (d *Device) SetProperty(key string, value any) {
	if d.properties == nil {
		d.properties = make(map[string]any)
	}
	d.properties[key] = value
}

// Properties returns a shallow copy of all properties.
func (d *Device) Properties() map[string]any {
	out := make(map[string]any, len(d.properties))
	maps.Copy(out, d.properties)
	return out
}

// Wire is the JSON shape of a device in API responses.
type Wire struct {
	DeviceID   string         `json:"device_id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Status     Status         `json:"status"`
	Properties map[string]any `json:"properties"`
}

// ToWire projects the device into its response shape.
// DeviceType is published as "type" and properties are never null.
func (d *Device) ToWire() Wire {
	return Wire{
		DeviceID:   d.DeviceID,
		Name:       d.Name,
		Type:       d.DeviceType,
		Status:     d.status,
		Properties: d.Properties(),
	}
}
