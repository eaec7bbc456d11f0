// Package observability provides a metrics extension for the rental ledger
// that records lifecycle event counts and billing distributions through a
// MetricFactory.
package observability

import (
	"context"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/plugin"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnRoomCreated     = (*MetricsExtension)(nil)
	_ plugin.OnRoomDeleted     = (*MetricsExtension)(nil)
	_ plugin.OnTenantsReplaced = (*MetricsExtension)(nil)
	_ plugin.OnCheckout        = (*MetricsExtension)(nil)
	_ plugin.OnHistoryArchived = (*MetricsExtension)(nil)
	_ plugin.OnRecordAppended  = (*MetricsExtension)(nil)
	_ plugin.OnRecordEdited    = (*MetricsExtension)(nil)
	_ plugin.OnRecordDeleted   = (*MetricsExtension)(nil)
	_ plugin.OnRecordPaid      = (*MetricsExtension)(nil)
	_ plugin.OnLogin           = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Room metrics
	RoomCreated     Counter
	RoomDeleted     Counter
	TenantsReplaced Counter
	Checkouts       Counter

	// Ledger metrics
	RecordAppended  Counter
	RecordEdited    Counter
	RecordDeleted   Counter
	RecordPaid      Counter
	RecordsArchived Counter

	// Billing distributions
	BillAmount    Histogram
	ElectricUsage Histogram
	WaterUsage    Histogram

	// Access metrics
	Logins       Counter
	TenantLogins Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		RoomCreated:     factory.Counter("rentledger.room.created"),
		RoomDeleted:     factory.Counter("rentledger.room.deleted"),
		TenantsReplaced: factory.Counter("rentledger.tenants.replaced"),
		Checkouts:       factory.Counter("rentledger.room.checkout"),

		RecordAppended:  factory.Counter("rentledger.record.appended"),
		RecordEdited:    factory.Counter("rentledger.record.edited"),
		RecordDeleted:   factory.Counter("rentledger.record.deleted"),
		RecordPaid:      factory.Counter("rentledger.record.paid"),
		RecordsArchived: factory.Counter("rentledger.record.archived"),

		BillAmount:    factory.Histogram("rentledger.bill.amount_vnd"),
		ElectricUsage: factory.Histogram("rentledger.usage.electric_kwh"),
		WaterUsage:    factory.Histogram("rentledger.usage.water_m3"),

		Logins:       factory.Counter("rentledger.auth.logins"),
		TenantLogins: factory.Counter("rentledger.auth.tenant_logins"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Room hooks
// ──────────────────────────────────────────────────

// OnRoomCreated implements plugin.OnRoomCreated.
func (m *MetricsExtension) OnRoomCreated(_ context.Context, _ *room.Room) error {
	m.RoomCreated.Inc()
	return nil
}

// OnRoomDeleted implements plugin.OnRoomDeleted.
func (m *MetricsExtension) OnRoomDeleted(_ context.Context, _ id.RoomID) error {
	m.RoomDeleted.Inc()
	return nil
}

// OnTenantsReplaced implements plugin.OnTenantsReplaced.
func (m *MetricsExtension) OnTenantsReplaced(_ context.Context, _ *room.Room, _ []tenant.Tenant) error {
	m.TenantsReplaced.Inc()
	return nil
}

// OnCheckout implements plugin.OnCheckout.
func (m *MetricsExtension) OnCheckout(_ context.Context, _ *room.Room, final *usage.Record) error {
	m.Checkouts.Inc()
	m.observe(final)
	return nil
}

// OnHistoryArchived implements plugin.OnHistoryArchived.
func (m *MetricsExtension) OnHistoryArchived(_ context.Context, _ *room.Room, archived []*usage.Record) error {
	m.RecordsArchived.Add(float64(len(archived)))
	return nil
}

// ──────────────────────────────────────────────────
// Usage record hooks
// ──────────────────────────────────────────────────

// OnRecordAppended implements plugin.OnRecordAppended.
func (m *MetricsExtension) OnRecordAppended(_ context.Context, _ *room.Room, rec *usage.Record) error {
	m.RecordAppended.Inc()
	m.observe(rec)
	return nil
}

// OnRecordEdited implements plugin.OnRecordEdited.
func (m *MetricsExtension) OnRecordEdited(_ context.Context, _ *room.Room, _ *usage.Record) error {
	m.RecordEdited.Inc()
	return nil
}

// OnRecordDeleted implements plugin.OnRecordDeleted.
func (m *MetricsExtension) OnRecordDeleted(_ context.Context, _ *room.Room, _ id.RecordID) error {
	m.RecordDeleted.Inc()
	return nil
}

// OnRecordPaid implements plugin.OnRecordPaid.
func (m *MetricsExtension) OnRecordPaid(_ context.Context, _ *room.Room, _ *usage.Record) error {
	m.RecordPaid.Inc()
	return nil
}

// OnLogin implements plugin.OnLogin.
func (m *MetricsExtension) OnLogin(_ context.Context, p *user.Principal) error {
	if p.Role == user.RoleTenant {
		m.TenantLogins.Inc()
		return nil
	}
	m.Logins.Inc()
	return nil
}

func (m *MetricsExtension) observe(rec *usage.Record) {
	m.BillAmount.Observe(float64(rec.Amount.Amount))
	m.ElectricUsage.Observe(float64(rec.Usage.Electric))
	m.WaterUsage.Observe(float64(rec.Usage.Water))
}
