package rentledger

import (
	"context"
	"fmt"

	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

// DemoPassword is the password of the accounts created by Seed.
const DemoPassword = "password123"

// Seed fills an empty store with demo data: an admin and a staff account, an
// occupied room with two billed months (the first paid) and a vacant room.
// It does nothing when any room or user already exists.
func (e *Engine) Seed(ctx context.Context) error {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return err
	}
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(rooms) > 0 || len(users) > 0 {
		e.logger.Info("seed skipped, store is not empty", "rooms", len(rooms), "users", len(users))
		return nil
	}

	for _, in := range []UserInput{
		{Username: "admin", Name: "Quản trị viên", Role: user.RoleAdmin, Password: DemoPassword},
		{Username: "staff", Name: "Nhân viên", Role: user.RoleStaff, Password: DemoPassword},
	} {
		if _, err := e.CreateUser(ctx, in); err != nil {
			return fmt.Errorf("seed user %s: %w", in.Username, err)
		}
	}

	today := types.Date(e.now())
	moveIn := today.AddDate(0, -2, 0)

	occupied, err := e.CreateRoom(ctx, RoomInput{Name: "Phòng 101", BaseRent: 2_000_000})
	if err != nil {
		return fmt.Errorf("seed room: %w", err)
	}
	_, err = e.ReplaceTenants(ctx, occupied.ID, []tenant.Tenant{
		{Name: "Nguyễn Văn An", Phone: "0912345678", MoveInDate: moveIn},
	})
	if err != nil {
		return fmt.Errorf("seed tenants: %w", err)
	}

	first := usage.Period{Start: moveIn, End: moveIn.AddDate(0, 1, -1)}
	_, rec, err := e.AppendRecord(ctx, occupied.ID, usage.Readings{Electric: 100, Water: 10}, first)
	if err != nil {
		return fmt.Errorf("seed record: %w", err)
	}
	if _, _, err := e.MarkPaid(ctx, occupied.ID, rec.ID); err != nil {
		return fmt.Errorf("seed payment: %w", err)
	}
	second := usage.Period{Start: first.End.AddDate(0, 0, 1), End: moveIn.AddDate(0, 2, -1)}
	if _, _, err := e.AppendRecord(ctx, occupied.ID, usage.Readings{Electric: 150, Water: 15}, second); err != nil {
		return fmt.Errorf("seed record: %w", err)
	}

	if _, err := e.CreateRoom(ctx, RoomInput{Name: "Phòng 102", BaseRent: 1_800_000}); err != nil {
		return fmt.Errorf("seed room: %w", err)
	}

	e.logger.Info("seeded demo data", "rooms", 2, "users", 2)
	return nil
}
