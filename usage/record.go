// Package usage defines metered billing records: cumulative meter readings
// for one billing period, the usage derived from them and the resulting bill.
package usage

import (
	"time"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
)

// Readings is a pair of utility-meter values. On a Record it holds either
// cumulative meter readings or the usage derived from them.
type Readings struct {
	Electric int64 `json:"electric"` // kWh
	Water    int64 `json:"water"`    // m³
}

// Sub returns the per-meter difference r - prev.
func (r Readings) Sub(prev Readings) Readings {
	return Readings{Electric: r.Electric - prev.Electric, Water: r.Water - prev.Water}
}

// Period is the calendar-date range a record bills for.
type Period struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Record is one billing period of a room.
//
// Usage and Amount are derived from Readings and the preceding record's
// Readings; they are stored, not recomputed on read. ManualAmount marks an
// Amount that was set explicitly and therefore does not follow the
// rent + usage formula.
type Record struct {
	ID       id.RecordID `json:"id"`
	Period   Period      `json:"period"`
	Readings Readings    `json:"readings"`
	Usage    Readings    `json:"usage"`

	// BaseRent is the rent that was applied when Amount was last computed.
	BaseRent     types.Money `json:"base_rent"`
	Amount       types.Money `json:"amount"`
	ManualAmount bool        `json:"manual_amount,omitempty"`
	Paid         bool        `json:"paid"`

	// Tenants is the room's tenant list captured when the record was
	// created.
	Tenants []tenant.Tenant `json:"tenants"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Tenants = tenant.Clone(r.Tenants)
	return &cp
}

// CloneAll deep-copies a record list.
func CloneAll(list []*Record) []*Record {
	if list == nil {
		return nil
	}
	out := make([]*Record, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}

// Index returns the position of the record with the given ID, or -1.
func Index(list []*Record, recordID id.RecordID) int {
	for i, r := range list {
		if r.ID == recordID {
			return i
		}
	}
	return -1
}
