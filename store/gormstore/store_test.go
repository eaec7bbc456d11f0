package gormstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/store/gormstore"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()
	s, err := gormstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleRoom() *room.Room {
	an := tenant.Tenant{ID: id.NewTenantID(), Name: "Nguyễn Văn An", Phone: "091 234 56 78", MoveInDate: day("2024-01-01")}
	rec := func(e, w int64, start, end string, paid bool) *usage.Record {
		return &usage.Record{
			ID:        id.NewRecordID(),
			Period:    usage.Period{Start: day(start), End: day(end)},
			Readings:  usage.Readings{Electric: e, Water: w},
			Usage:     usage.Readings{Electric: e, Water: w},
			BaseRent:  types.VND(2_000_000),
			Amount:    types.VND(2_600_000),
			Paid:      paid,
			Tenants:   []tenant.Tenant{an},
			CreatedAt: day(end),
		}
	}
	return &room.Room{
		Entity:   types.NewEntity(),
		ID:       id.NewRoomID(),
		Name:     "Phòng 101",
		BaseRent: types.VND(2_000_000),
		Tenants:  []tenant.Tenant{an},
		History: []*usage.Record{
			rec(100, 10, "2024-01-01", "2024-02-01", true),
			rec(150, 15, "2024-02-01", "2024-03-01", false),
		},
		Archive: []*usage.Record{
			rec(40, 4, "2023-11-01", "2023-12-01", true),
		},
		Position: 3,
	}
}

func TestRoomRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := sampleRoom()

	require.NoError(t, s.CreateRoom(ctx, r))

	got, err := s.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, got.Name)
	assert.True(t, r.BaseRent.Equal(got.BaseRent))
	assert.Equal(t, 3, got.Position)
	require.Len(t, got.Tenants, 1)
	assert.Equal(t, r.Tenants[0].ID, got.Tenants[0].ID)
	assert.Equal(t, "Nguyễn Văn An", got.Tenants[0].Name)

	require.Len(t, got.History, 2)
	require.Len(t, got.Archive, 1)
	assert.Equal(t, r.History[0].ID, got.History[0].ID)
	assert.Equal(t, r.History[1].ID, got.History[1].ID)
	assert.True(t, got.History[0].Paid)
	assert.False(t, got.History[1].Paid)
	assert.Equal(t, usage.Readings{Electric: 150, Water: 15}, got.History[1].Readings)
	assert.True(t, got.History[1].Period.End.Equal(day("2024-03-01")))
	assert.True(t, got.History[1].Amount.Equal(types.VND(2_600_000)))
	require.Len(t, got.History[1].Tenants, 1)
	assert.Equal(t, "Nguyễn Văn An", got.History[1].Tenants[0].Name)
	assert.Equal(t, r.Archive[0].ID, got.Archive[0].ID)
}

func TestRoomUpdateReplacesAggregate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := sampleRoom()
	require.NoError(t, s.CreateRoom(ctx, r))

	next := r.Clone()
	next.Archive = append(next.Archive, next.History...)
	next.History = nil
	next.Tenants = nil
	next.Pinned = true
	require.NoError(t, s.UpdateRoom(ctx, next))

	got, err := s.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tenants)
	assert.Empty(t, got.History)
	require.Len(t, got.Archive, 3)
	assert.Equal(t, r.Archive[0].ID, got.Archive[0].ID)
	assert.Equal(t, r.History[1].ID, got.Archive[2].ID)
	assert.True(t, got.Pinned)
}

func TestRoomNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	missing := sampleRoom()

	_, err := s.GetRoom(ctx, missing.ID)
	assert.ErrorIs(t, err, rentledger.ErrRoomNotFound)
	assert.ErrorIs(t, s.UpdateRoom(ctx, missing), rentledger.ErrRoomNotFound)
	assert.ErrorIs(t, s.DeleteRoom(ctx, missing.ID), rentledger.ErrRoomNotFound)
}

func TestRoomDuplicateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	r := sampleRoom()
	require.NoError(t, s.CreateRoom(ctx, r))
	assert.ErrorIs(t, s.CreateRoom(ctx, r), rentledger.ErrAlreadyExists)

	other := sampleRoom()
	other.Name = "Phòng 102"
	other.Position = 0
	require.NoError(t, s.CreateRoom(ctx, other))

	rooms, err := s.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, other.ID, rooms[0].ID)

	require.NoError(t, s.DeleteRoom(ctx, r.ID))
	rooms, err = s.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u := &user.User{Entity: types.NewEntity(), ID: id.NewUserID(), Username: "admin", Name: "Quản trị", Role: user.RoleAdmin}
	require.NoError(t, u.SetPassword("secret123"))
	require.NoError(t, s.CreateUser(ctx, u))

	dup := &user.User{Entity: types.NewEntity(), ID: id.NewUserID(), Username: "admin", Name: "X", Role: user.RoleStaff}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), rentledger.ErrAlreadyExists)

	got, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, got.CheckPassword("secret123"))

	got.Name = "Quản trị viên"
	require.NoError(t, s.UpdateUser(ctx, got))
	again, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quản trị viên", again.Name)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, rentledger.ErrUserNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), rentledger.ErrUserNotFound)
}

func TestEngineOnSQLite(t *testing.T) {
	ctx := context.Background()
	e := rentledger.New(newStore(t))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Seed(ctx))

	rooms, err := e.ListRooms(ctx, room.ListOpts{Status: room.StatusOccupied})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Len(t, rooms[0].History, 2)

	problems, err := e.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, problems)

	p, err := e.Authenticate(ctx, "phong101", "101")
	require.NoError(t, err)
	assert.Equal(t, user.RoleTenant, p.Role)
}
