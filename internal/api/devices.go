package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// createDeviceRequest is the POST /devices/ body. Pointer fields tell an
// absent key from an empty string. Any other key, including status and
// properties, is ignored.
type createDeviceRequest struct {
	DeviceID *string `json:"device_id"`
	Name     *string `json:"name"`
	Type     *string `json:"type"`
}

// missingKeys lists the required keys absent from the body.
func (req createDeviceRequest) missingKeys() []string {
	var missing []string
	if req.DeviceID == nil {
		missing = append(missing, "device_id")
	}
	if req.Name == nil {
		missing = append(missing, "name")
	}
	if req.Type == nil {
		missing = append(missing, "type")
	}
	return missing
}

// deviceCreatedEvent is the payload published after a device is registered.
type deviceCreatedEvent struct {
	device.Wire
	CreatedAt time.Time `json:"created_at"`
}

// handleListDevices returns every stored device in creation order.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var records []device.Record
	err := s.store.WithSession(r.Context(), func(repo device.Repository) error {
		var err error
		records, err = repo.List(r.Context())
		return err
	})
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	wire := make([]device.Wire, 0, len(records))
	for _, rec := range records {
		wire = append(wire, rec.Entity().ToWire())
	}
	writeJSON(w, http.StatusOK, wire)
}

// handleGetDevice returns a single device by its device_id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	var rec *device.Record
	err := s.store.WithSession(r.Context(), func(repo device.Repository) error {
		var err error
		rec, err = repo.GetByDeviceID(r.Context(), deviceID)
		return err
	})
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeDeviceNotFound(w)
			return
		}
		s.logger.Error("getting device failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, rec.Entity().ToWire())
}

// handleCreateDevice registers a new device.
//
// The stored record is always offline with empty properties. The response is
// written after the transaction commits; the MQTT event and telemetry point
// follow on a best-effort basis.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if missing := req.missingKeys(); len(missing) > 0 {
		writeBadRequest(w, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	reg := device.Registration{
		DeviceID:   *req.DeviceID,
		Name:       *req.Name,
		DeviceType: *req.Type,
	}

	var rec *device.Record
	err := s.store.WithSession(r.Context(), func(repo device.Repository) error {
		var err error
		rec, err = repo.Insert(r.Context(), reg)
		return err
	})
	if err != nil {
		// Duplicate device_id included: first insert wins.
		s.logger.Error("creating device failed",
			"device_id", reg.DeviceID,
			"duplicate", errors.Is(err, device.ErrDeviceExists),
			"error", err,
		)
		writeInternalError(w, "failed to create device")
		return
	}

	wire := rec.Entity().ToWire()
	writeJSON(w, http.StatusOK, wire)

	s.logger.Info("device registered", "device_id", rec.DeviceID, "type", rec.DeviceType)
	s.announceDevice(wire, rec.CreatedAt)
}

// announceDevice publishes the created event and records the telemetry point.
// Failures are logged and never reach the client.
func (s *Server) announceDevice(wire device.Wire, createdAt time.Time) {
	if s.telemetry != nil {
		s.telemetry.WriteDeviceRegistered(wire.DeviceID, wire.Type)
	}
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(deviceCreatedEvent{Wire: wire, CreatedAt: createdAt})
	if err != nil {
		s.logger.Warn("encoding device event failed", "device_id", wire.DeviceID, "error", err)
		return
	}
	topic := s.events.Topics().DeviceCreated(wire.DeviceID)
	if err := s.events.PublishEvent(topic, payload); err != nil {
		s.logger.Warn("publishing device event failed", "topic", topic, "error", err)
	}
}
