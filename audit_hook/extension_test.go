package audithook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

type captured struct {
	events []*AuditEvent
}

func (c *captured) Record(_ context.Context, evt *AuditEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func testRoom() *room.Room {
	return &room.Room{
		ID:       id.NewRoomID(),
		Name:     "Phòng 101",
		BaseRent: types.VND(2_000_000),
		Tenants:  []tenant.Tenant{{ID: id.NewTenantID(), Name: "An"}},
	}
}

func TestRecordAppendedEvent(t *testing.T) {
	rec := &captured{}
	ext := New(rec)
	r := testRoom()
	ur := &usage.Record{ID: id.NewRecordID(), Readings: usage.Readings{Electric: 100, Water: 10}, Amount: types.VND(2_600_000)}

	require.NoError(t, ext.OnRecordAppended(context.Background(), r, ur))
	require.Len(t, rec.events, 1)

	evt := rec.events[0]
	assert.Equal(t, ActionRecordAppended, evt.Action)
	assert.Equal(t, ResourceRecord, evt.Resource)
	assert.Equal(t, ur.ID.String(), evt.ResourceID)
	assert.Equal(t, r.ID.String(), evt.Metadata["room_id"])
	assert.Equal(t, int64(2_600_000), evt.Metadata["amount"])
}

func TestEnabledActions(t *testing.T) {
	rec := &captured{}
	ext := New(rec, WithEnabledActions(ActionCheckout))
	ctx := context.Background()
	r := testRoom()

	require.NoError(t, ext.OnRoomCreated(ctx, r))
	require.NoError(t, ext.OnCheckout(ctx, r, &usage.Record{ID: id.NewRecordID()}))

	require.Len(t, rec.events, 1)
	assert.Equal(t, ActionCheckout, rec.events[0].Action)
}

func TestDisabledActions(t *testing.T) {
	rec := &captured{}
	ext := New(rec, WithDisabledActions(ActionLogin))
	ctx := context.Background()

	require.NoError(t, ext.OnRoomDeleted(ctx, id.NewRoomID()))
	require.NoError(t, ext.OnTenantsReplaced(ctx, testRoom(), nil))
	assert.Len(t, rec.events, 2)
	assert.Equal(t, "An", rec.events[1].Metadata["current"])
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("backend down")
	}))
	assert.NoError(t, ext.OnRoomDeleted(context.Background(), id.NewRoomID()))
}
