package device

import (
	"maps"
	"time"
)

// Registration is the caller-supplied part of a new device.
type Registration struct {
	DeviceID   string
	Name       string
	DeviceType string
}

// Record is one row of the devices table.
type Record struct {
	ID         int64
	DeviceID   string
	Name       string
	DeviceType string
	Status     Status
	Properties map[string]any

	// OwnerID references users.id. No operation sets it.
	OwnerID *int64

	// CreatedAt is set once by the store at insert time.
	CreatedAt time.Time
}

// NewRecord builds the record stored for reg: offline with no properties.
func NewRecord(reg Registration) Record {
	return Record{
		DeviceID:   reg.DeviceID,
		Name:       reg.Name,
		DeviceType: reg.DeviceType,
		Status:     StatusOffline,
		Properties: map[string]any{},
	}
}

// Entity builds a fresh Device from the stored record.
func (r Record) Entity() *Device {
	d := New(r.DeviceID, r.Name, r.DeviceType)
	d.SetStatus(r.Status)
	maps.Copy(d.properties, r.Properties)
	return d
}
