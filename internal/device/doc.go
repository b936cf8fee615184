// Package device is the smart-home device registry.
//
// It has three layers:
//
//   - Device: the transient entity built for every response. It carries a
//     Status, free-form properties and the wire projection (ToWire), which
//     renames device_type to "type".
//   - Record: one persisted row of the devices table, with the surrogate
//     key, optional owner and creation timestamp.
//   - Repository / Store: list, lookup and insert over SQLite. Store scopes
//     each unit of work to one transaction that is always committed or
//     rolled back before WithSession returns.
//
// # Usage
//
//	store := device.NewStore(db)
//	err := store.WithSession(ctx, func(repo device.Repository) error {
//	    rec, err := repo.Insert(ctx, device.Registration{
//	        DeviceID:   "living-room-lamp",
//	        Name:       "Living Room Lamp",
//	        DeviceType: "light",
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    wire = rec.Entity().ToWire()
//	    return nil
//	})
//
// Records are never updated or deleted. A new record always starts offline
// with no properties, whatever the caller sent.
package device
