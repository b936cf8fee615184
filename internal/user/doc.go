// Package user manages the users table.
//
// Users can own devices through devices.owner_id. No HTTP endpoint reads or
// writes users; the package exists so the table can be populated and
// inspected by operators and tests. HashedPassword is stored as given; no
// operation hashes or verifies it.
package user
