package gormstore

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

type roomModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"not null;size:64"`
	BaseRent  int64  `gorm:"not null"`
	Currency  string `gorm:"not null;size:3"`
	Pinned    bool   `gorm:"not null"`
	Position  int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Tenants []tenantModel `gorm:"foreignKey:RoomID"`
	Records []recordModel `gorm:"foreignKey:RoomID"`
}

func (roomModel) TableName() string { return "rooms" }

type tenantModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	RoomID      string    `gorm:"not null;size:64;index"`
	Seq         int       `gorm:"not null"`
	Name        string    `gorm:"not null"`
	Phone       string    `gorm:"size:32"`
	MoveInDate  time.Time `gorm:"not null"`
	IDNumber    string    `gorm:"size:32"`
	BirthDate   string    `gorm:"size:32"`
	Sex         string    `gorm:"size:16"`
	Nationality string
	Origin      string
	Residence   string
	Occupation  string
	PhotoURL    string
}

func (tenantModel) TableName() string { return "tenants" }

// recordModel stores both active and archived records. Seq is the position
// inside its ledger.
type recordModel struct {
	ID            string    `gorm:"primaryKey;size:64"`
	RoomID        string    `gorm:"not null;size:64;index:idx_usage_records_room,priority:1"`
	Archived      bool      `gorm:"not null;index:idx_usage_records_room,priority:2"`
	Seq           int       `gorm:"not null;index:idx_usage_records_room,priority:3"`
	StartDate     time.Time `gorm:"not null"`
	EndDate       time.Time `gorm:"not null"`
	Electric      int64     `gorm:"not null"`
	Water         int64     `gorm:"not null"`
	ElectricUsage int64     `gorm:"not null"`
	WaterUsage    int64     `gorm:"not null"`
	BaseRent      int64     `gorm:"not null"`
	Amount        int64     `gorm:"not null"`
	Currency      string    `gorm:"not null;size:3"`
	ManualAmount  bool      `gorm:"not null"`
	Paid          bool      `gorm:"not null;index"`

	// Tenants is the snapshot taken when the record was created.
	Tenants   []tenant.Tenant `gorm:"serializer:json"`
	CreatedAt time.Time
}

func (recordModel) TableName() string { return "usage_records" }

func toRoomModel(r *room.Room) *roomModel {
	m := &roomModel{
		ID:        r.ID.String(),
		Name:      r.Name,
		BaseRent:  r.BaseRent.Amount,
		Currency:  r.BaseRent.Currency,
		Pinned:    r.Pinned,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for i, t := range r.Tenants {
		m.Tenants = append(m.Tenants, toTenantModel(m.ID, i, t))
	}
	for i, rec := range r.History {
		m.Records = append(m.Records, toRecordModel(m.ID, i, false, rec))
	}
	for i, rec := range r.Archive {
		m.Records = append(m.Records, toRecordModel(m.ID, i, true, rec))
	}
	return m
}

func fromRoomModel(m *roomModel) (*room.Room, error) {
	roomID, err := id.ParseRoomID(m.ID)
	if err != nil {
		return nil, err
	}
	r := &room.Room{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:       roomID,
		Name:     m.Name,
		BaseRent: types.Money{Amount: m.BaseRent, Currency: m.Currency},
		Pinned:   m.Pinned,
		Position: m.Position,
	}
	for i := range m.Tenants {
		t, err := fromTenantModel(&m.Tenants[i])
		if err != nil {
			return nil, err
		}
		r.Tenants = append(r.Tenants, t)
	}
	for i := range m.Records {
		rec, err := fromRecordModel(&m.Records[i])
		if err != nil {
			return nil, err
		}
		if m.Records[i].Archived {
			r.Archive = append(r.Archive, rec)
		} else {
			r.History = append(r.History, rec)
		}
	}
	return r, nil
}

func toTenantModel(roomID string, seq int, t tenant.Tenant) tenantModel {
	return tenantModel{
		ID:          t.ID.String(),
		RoomID:      roomID,
		Seq:         seq,
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
	}
}

func fromTenantModel(m *tenantModel) (tenant.Tenant, error) {
	tenantID, err := id.ParseTenantID(m.ID)
	if err != nil {
		return tenant.Tenant{}, err
	}
	return tenant.Tenant{
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
	}, nil
}

func toRecordModel(roomID string, seq int, archived bool, rec *usage.Record) recordModel {
	return recordModel{
		ID:            rec.ID.String(),
		RoomID:        roomID,
		Archived:      archived,
		Seq:           seq,
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
		Tenants:       rec.Tenants,
		CreatedAt:     rec.CreatedAt,
	}
}

func fromRecordModel(m *recordModel) (*usage.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, err
	}
	return &usage.Record{
		ID:           recordID,
		Period:       usage.Period{Start: m.StartDate.UTC(), End: m.EndDate.UTC()},
		Readings:     usage.Readings{Electric: m.Electric, Water: m.Water},
		Usage:        usage.Readings{Electric: m.ElectricUsage, Water: m.WaterUsage},
		BaseRent:     types.Money{Amount: m.BaseRent, Currency: m.Currency},
		Amount:       types.Money{Amount: m.Amount, Currency: m.Currency},
		ManualAmount: m.ManualAmount,
		Paid:         m.Paid,
		Tenants:      m.Tenants,
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}

// ==================== User models ====================

type userModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	Username     string `gorm:"not null;size:32;uniqueIndex"`
	Name         string `gorm:"not null;size:100"`
	Role         string `gorm:"not null;size:16"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

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
