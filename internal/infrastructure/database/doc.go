// Package database provides SQLite connectivity for the device registry.
//
// This package manages:
//   - The database connection (WAL mode, busy timeout, foreign keys)
//   - Embedded schema migrations
//   - Transaction scoping via WithTx
//   - Translation of constraint failures (IsUniqueViolation)
//
// The pool is limited to one connection, matching SQLite's single writer.
// Code running inside WithTx must issue every statement through the
// transaction it was handed.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./smart_home.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql and are
// registered by the migrations package. Migrations only move forward; there
// is no rollback.
package database
