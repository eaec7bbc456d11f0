package mongo

import (
	"time"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
	"github.com/nhatro/rentledger/user"
)

// ==================== Room models ====================

// roomModel is one document per room. Tenants and both ledgers are
// embedded, so a room is always read and written as a whole.
type roomModel struct {
	ID        string        `bson:"_id"`
	Name      string        `bson:"name"`
	BaseRent  int64         `bson:"base_rent"`
	Currency  string        `bson:"currency"`
	Tenants   []tenantModel `bson:"tenants"`
	History   []recordModel `bson:"usage_history"`
	Archive   []recordModel `bson:"archived_usage_history"`
	Pinned    bool          `bson:"pinned"`
	Position  int           `bson:"position"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type tenantModel struct {
	ID          string    `bson:"id"`
	Name        string    `bson:"name"`
	Phone       string    `bson:"phone,omitempty"`
	MoveInDate  time.Time `bson:"move_in_date"`
	IDNumber    string    `bson:"id_number,omitempty"`
	BirthDate   string    `bson:"birth_date,omitempty"`
	Sex         string    `bson:"sex,omitempty"`
	Nationality string    `bson:"nationality,omitempty"`
	Origin      string    `bson:"origin,omitempty"`
	Residence   string    `bson:"residence,omitempty"`
	Occupation  string    `bson:"occupation,omitempty"`
	PhotoURL    string    `bson:"photo_url,omitempty"`
}

type recordModel struct {
	ID            string        `bson:"id"`
	StartDate     time.Time     `bson:"start_date"`
	EndDate       time.Time     `bson:"end_date"`
	Electric      int64         `bson:"electric"`
	Water         int64         `bson:"water"`
	ElectricUsage int64         `bson:"electric_usage"`
	WaterUsage    int64         `bson:"water_usage"`
	BaseRent      int64         `bson:"base_rent"`
	Amount        int64         `bson:"amount"`
	Currency      string        `bson:"currency"`
	ManualAmount  bool          `bson:"manual_amount,omitempty"`
	Paid          bool          `bson:"paid"`
	Tenants       []tenantModel `bson:"tenants"`
	CreatedAt     time.Time     `bson:"created_at"`
}

func toRoomModel(r *room.Room) *roomModel {
	return &roomModel{
		ID:        r.ID.String(),
		Name:      r.Name,
		BaseRent:  r.BaseRent.Amount,
		Currency:  r.BaseRent.Currency,
		Tenants:   toTenantModels(r.Tenants),
		History:   toRecordModels(r.History),
		Archive:   toRecordModels(r.Archive),
		Pinned:    r.Pinned,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromRoomModel(m *roomModel) (*room.Room, error) {
	roomID, err := id.ParseRoomID(m.ID)
	if err != nil {
		return nil, err
	}
	tenants, err := fromTenantModels(m.Tenants)
	if err != nil {
		return nil, err
	}
	history, err := fromRecordModels(m.History)
	if err != nil {
		return nil, err
	}
	archive, err := fromRecordModels(m.Archive)
	if err != nil {
		return nil, err
	}

	return &room.Room{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:       roomID,
		Name:     m.Name,
		BaseRent: types.Money{Amount: m.BaseRent, Currency: m.Currency},
		Tenants:  tenants,
		History:  history,
		Archive:  archive,
		Pinned:   m.Pinned,
		Position: m.Position,
	}, nil
}

func toTenantModels(list []tenant.Tenant) []tenantModel {
	out := make([]tenantModel, 0, len(list))
	for _, t := range list {
		out = append(out, tenantModel{
			ID:          t.ID.String(),
			Name:        t.Name,
			Phone:       t.Phone,
			MoveInDate:  t.MoveInDate,
			IDNumber:    t.IDNumber,
			BirthDate:   t.BirthDate,
			Sex:         t.Sex,
			Nationality: t.Nationality,
			Origin:      t.Origin,
			Residence:   t.Residence,
			Occupation:  t.Occupation,
			PhotoURL:    t.PhotoURL,
		})
	}
	return out
}

func fromTenantModels(list []tenantModel) ([]tenant.Tenant, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]tenant.Tenant, 0, len(list))
	for _, m := range list {
		tenantID, err := id.ParseTenantID(m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, tenant.Tenant{
			ID:          tenantID,
			Name:        m.Name,
			Phone:       m.Phone,
			MoveInDate:  m.MoveInDate.UTC(),
			IDNumber:    m.IDNumber,
			BirthDate:   m.BirthDate,
			Sex:         m.Sex,
			Nationality: m.Nationality,
			Origin:      m.Origin,
			Residence:   m.Residence,
			Occupation:  m.Occupation,
			PhotoURL:    m.PhotoURL,
		})
	}
	return out, nil
}

func toRecordModels(list []*usage.Record) []recordModel {
	out := make([]recordModel, 0, len(list))
	for _, rec := range list {
		out = append(out, recordModel{
			ID:            rec.ID.String(),
			StartDate:     rec.Period.Start,
			EndDate:       rec.Period.End,
			Electric:      rec.Readings.Electric,
			Water:         rec.Readings.Water,
			ElectricUsage: rec.Usage.Electric,
			WaterUsage:    rec.Usage.Water,
			BaseRent:      rec.BaseRent.Amount,
			Amount:        rec.Amount.Amount,
			Currency:      rec.Amount.Currency,
			ManualAmount:  rec.ManualAmount,
			Paid:          rec.Paid,
			Tenants:       toTenantModels(rec.Tenants),
			CreatedAt:     rec.CreatedAt,
		})
	}
	return out
}

func fromRecordModels(list []recordModel) ([]*usage.Record, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]*usage.Record, 0, len(list))
	for _, m := range list {
		recordID, err := id.ParseRecordID(m.ID)
		if err != nil {
			return nil, err
		}
		tenants, err := fromTenantModels(m.Tenants)
		if err != nil {
			return nil, err
		}
		out = append(out, &usage.Record{
			ID:           recordID,
			Period:       usage.Period{Start: m.StartDate.UTC(), End: m.EndDate.UTC()},
			Readings:     usage.Readings{Electric: m.Electric, Water: m.Water},
			Usage:        usage.Readings{Electric: m.ElectricUsage, Water: m.WaterUsage},
			BaseRent:     types.Money{Amount: m.BaseRent, Currency: m.Currency},
			Amount:       types.Money{Amount: m.Amount, Currency: m.Currency},
			ManualAmount: m.ManualAmount,
			Paid:         m.Paid,
			Tenants:      tenants,
			CreatedAt:    m.CreatedAt.UTC(),
		})
	}
	return out, nil
}

// ==================== User models ====================

type userModel struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Name         string    `bson:"name"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:           u.ID.String(),
		Username:     u.Username,
		Name:         u.Name,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}
	return &user.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:           userID,
		Username:     m.Username,
		Name:         m.Name,
		Role:         user.Role(m.Role),
		PasswordHash: m.PasswordHash,
	}, nil
}
