// Package rentledger is a usage ledger engine for rental rooms.
//
// Each room carries an ordered history of usage records. A record holds
// cumulative electricity and water meter readings for one billing period;
// usage is the difference to the preceding record and the bill is the
// room's base rent plus priced usage. Records are edited, deleted and paid
// in place, and a tenancy ends with a checkout that moves the whole active
// history into an append-only archive.
//
// It provides:
//
//   - A pure Ledger whose operations return a new room and never modify
//     their input, so a rejected request leaves state untouched
//   - An Engine that loads and saves rooms through a store, serializes
//     mutations per room and notifies plugins
//   - Invoices with amounts in Vietnamese words and VietQR payment links,
//     Excel export and payment reminders
//   - Memory, JSON file, SQLite, PostgreSQL and MongoDB stores; the SQL
//     stores run on GORM or on a grove database
//
// # Quick Start
//
//	import (
//	    "github.com/nhatro/rentledger"
//	    "github.com/nhatro/rentledger/store/gormstore"
//	)
//
//	store, err := gormstore.OpenSQLite("rentledger.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := rentledger.New(store)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Billing
//
// Rooms start vacant. Billing requires at least one tenant:
//
//	r, err := e.CreateRoom(ctx, rentledger.RoomInput{Name: "Phòng 101", BaseRent: 2_000_000})
//	r, err = e.ReplaceTenants(ctx, r.ID, []tenant.Tenant{{Name: "Nguyễn Văn An"}})
//
//	_, rec, err := e.AppendRecord(ctx, r.ID,
//	    usage.Readings{Electric: 100, Water: 10},
//	    usage.Period{Start: jan1, End: feb1},
//	)
//	// rec.Amount == 2.000.000 + 100 × 5.000 + 10 × 10.000 = 2.600.000 ₫
//
// Editing a record recomputes it and its immediate successor only. Deleting
// a record rebases the record that moves into its place. Checkout appends a
// final record, archives the history and clears the tenants.
//
// All amounts are integer đồng. Readings never decrease along the active
// history, and archived records are never recalculated.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	room_01h2xcejqtf2nbrexx3vqjhp41  // Room ID
//	urec_01h2xcejqtf2nbrexx3vqjhp41  // Usage record ID
//	usr_01h455vb4pex5vsknk084sn02q   // User ID
package rentledger
