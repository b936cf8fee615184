package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when no record has the requested device_id.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when inserting a device_id that is already stored.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidStatus is returned when a status string or value is not recognised.
	ErrInvalidStatus = errors.New("device: invalid status")
)
