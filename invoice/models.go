// Package invoice renders usage records as tenant-facing bills: the printed
// "phiếu báo tiền nhà", its VietQR payment link, the invoice and archive
// listings, and the per-room Excel export. Invoices are views over records;
// they are never stored separately.
package invoice

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/room"
	"github.com/nhatro/rentledger/tenant"
	"github.com/nhatro/rentledger/types"
	"github.com/nhatro/rentledger/usage"
)

// Title heads every printed invoice.
const Title = "PHIẾU BÁO TIỀN NHÀ"

// Landlord is the payee printed on invoices and encoded in payment links.
type Landlord struct {
	Name          string `json:"name" mapstructure:"name" yaml:"name"`
	Address       string `json:"address" mapstructure:"address" yaml:"address"`
	Phone         string `json:"phone" mapstructure:"phone" yaml:"phone"`
	BankBIN       string `json:"bank_bin" mapstructure:"bank_bin" yaml:"bank_bin"`
	BankAccount   string `json:"bank_account" mapstructure:"bank_account" yaml:"bank_account"`
	BankName      string `json:"bank_name" mapstructure:"bank_name" yaml:"bank_name"`
	AccountHolder string `json:"account_holder" mapstructure:"account_holder" yaml:"account_holder"`
}

// DefaultLandlord returns the demo landlord.
func DefaultLandlord() Landlord {
	return Landlord{
		Name:          "Nhà Trọ Hạnh Phúc",
		Address:       "123 Đường ABC, Phường XYZ, Quận 1, TP. Hồ Chí Minh",
		Phone:         "0987 654 321",
		BankBIN:       "970436", // Vietcombank
		BankAccount:   "1234567890",
		BankName:      "Ngân hàng Vietcombank",
		AccountHolder: "CHỦ NHÀ TRỌ",
	}
}

type LineItemType string

const (
	LineItemRent     LineItemType = "rent"
	LineItemElectric LineItemType = "electric"
	LineItemWater    LineItemType = "water"
)

// LineItem is one numbered row of the bill.
type LineItem struct {
	No          int          `json:"no"`
	Type        LineItemType `json:"type"`
	Description string       `json:"description"`
	Detail      string       `json:"detail,omitempty"`
	Previous    int64        `json:"previous,omitempty"`
	Current     int64        `json:"current,omitempty"`
	Quantity    int64        `json:"quantity,omitempty"`
	UnitAmount  types.Money  `json:"unit_amount"`
	Amount      types.Money  `json:"amount"`
}

// Invoice is the printable bill for one usage record.
type Invoice struct {
	Landlord   Landlord     `json:"landlord"`
	RoomID     id.RoomID    `json:"room_id"`
	RoomName   string       `json:"room_name"`
	RecordID   id.RecordID  `json:"record_id"`
	Tenants    string       `json:"tenants"`
	Period     usage.Period `json:"period"`
	IssuedOn   time.Time    `json:"issued_on"`
	LineItems  []LineItem   `json:"line_items"`
	Total      types.Money  `json:"total"`
	TotalWords string       `json:"total_words"`

	// ManualTotal is set when the record's amount was entered by hand and
	// may differ from the sum of the line items.
	ManualTotal bool `json:"manual_total,omitempty"`

	Paid       bool   `json:"paid"`
	PaymentRef string `json:"payment_ref"`
	QRURL      string `json:"qr_url"`
}

// New builds the invoice for rec, a record of room r. The previous readings
// are recovered from the record itself (readings minus usage), so New works
// for archived records too.
func New(r *room.Room, rec *usage.Record, rates usage.Rates, landlord Landlord) *Invoice {
	prev := rec.Readings.Sub(rec.Usage)
	ref := PaymentReference(r, rec.Period.End)

	return &Invoice{
		Landlord: landlord,
		RoomID:   r.ID,
		RoomName: r.Name,
		RecordID: rec.ID,
		Tenants:  tenant.Names(rec.Tenants),
		Period:   rec.Period,
		IssuedOn: rec.Period.End,
		LineItems: []LineItem{
			{
				No:          1,
				Type:        LineItemRent,
				Description: "Tiền thuê phòng",
				UnitAmount:  rec.BaseRent,
				Amount:      rec.BaseRent,
			},
			{
				No:          2,
				Type:        LineItemElectric,
				Description: "Tiền điện",
				Detail: fmt.Sprintf("CS cũ: %d, CS mới: %d | Sử dụng: %d kWh x %s",
					prev.Electric, rec.Readings.Electric, rec.Usage.Electric, rates.Electric.FormatGrouped()),
				Previous:   prev.Electric,
				Current:    rec.Readings.Electric,
				Quantity:   rec.Usage.Electric,
				UnitAmount: rates.Electric,
				Amount:     rates.ElectricCost(rec.Usage),
			},
			{
				No:          3,
				Type:        LineItemWater,
				Description: "Tiền nước",
				Detail: fmt.Sprintf("CS cũ: %d, CS mới: %d | Sử dụng: %d m³ x %s",
					prev.Water, rec.Readings.Water, rec.Usage.Water, rates.Water.FormatGrouped()),
				Previous:   prev.Water,
				Current:    rec.Readings.Water,
				Quantity:   rec.Usage.Water,
				UnitAmount: rates.Water,
				Amount:     rates.WaterCost(rec.Usage),
			},
		},
		Total:       rec.Amount,
		TotalWords:  AmountInWords(rec.Amount.Amount),
		ManualTotal: rec.ManualAmount,
		Paid:        rec.Paid,
		PaymentRef:  ref,
		QRURL:       QRURL(landlord, rec.Amount, ref),
	}
}

// PaymentReference is the bank-transfer memo for a bill ending on end:
// "TT tien nha P<room number> T<month> <year>". Rooms without a number in
// their name use the full name.
func PaymentReference(r *room.Room, end time.Time) string {
	label := r.Number()
	if label == "" {
		label = r.Name
	}
	return fmt.Sprintf("TT tien nha P%s T%d %d", label, int(end.Month()), end.Year())
}

// QRURL returns the VietQR image link that pre-fills a transfer of amount to
// the landlord's account with the given memo.
func QRURL(l Landlord, amount types.Money, memo string) string {
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact2.png?amount=%d&addInfo=%s&accountName=%s",
		l.BankBIN, l.BankAccount, amount.Amount, encodeComponent(memo), encodeComponent(l.AccountHolder))
}

// encodeComponent percent-encodes s for a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
