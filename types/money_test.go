package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"VND", VND(2600000), 2600000, "vnd", "2.600.000 ₫"},
		{"VND small", VND(500), 500, "vnd", "500 ₫"},
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"Zero VND", Zero("VND"), 0, "vnd", "0 ₫"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return VND(2000000).Add(VND(600000)) }, VND(2600000)},
		{"Subtract", func() Money { return VND(500).Subtract(VND(200)) }, VND(300)},
		{"Multiply", func() Money { return VND(5000).Multiply(30) }, VND(150000)},
		{"Bill", func() Money {
			return VND(2000000).Add(VND(5000).Multiply(50)).Add(VND(10000).Multiply(5))
		}, VND(2300000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = VND(100).Add(USD(100))
}

func TestMoneyFormatGrouped(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{VND(0), "0"},
		{VND(999), "999"},
		{VND(1000), "1.000"},
		{VND(150000), "150.000"},
		{VND(2150000), "2.150.000"},
		{VND(-2150000), "-2.150.000"},
		{USD(4900), "49.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.in.FormatGrouped(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{VND(2600000), "2600000"},
		{USD(4900), "49.00"},
		{USD(-5), "-0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.in.FormatMajor(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(VND(2300000))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["display"] != "2.300.000 ₫" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(VND(2300000)) {
		t.Errorf("got %v, want %v", back, VND(2300000))
	}
}

func TestMoneyCurrencyCase(t *testing.T) {
	upper := Money{Amount: 2000000, Currency: "VND"}
	got := upper.Add(VND(300000))
	if got.Amount != 2300000 {
		t.Errorf("got %v, want 2.300.000", got)
	}
	if !upper.Equal(VND(2000000)) {
		t.Error("VND and vnd compare unequal")
	}

	var back Money
	if err := json.Unmarshal([]byte(`{"amount":5000,"currency":" VND "}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Currency != "vnd" {
		t.Errorf("currency: got %q, want %q", back.Currency, "vnd")
	}
}

func TestMoneyChecked(t *testing.T) {
	if got, err := VND(5000).MultiplyChecked(120); err != nil || got.Amount != 600000 {
		t.Errorf("MultiplyChecked: got %v, %v", got, err)
	}
	if _, err := VND(math.MaxInt64 / 2).MultiplyChecked(3); !errors.Is(err, ErrOverflow) {
		t.Errorf("MultiplyChecked overflow: got %v", err)
	}
	if _, err := VND(math.MaxInt64).AddChecked(VND(1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("AddChecked overflow: got %v", err)
	}
	if got, err := VND(-5).AddChecked(VND(7)); err != nil || got.Amount != 2 {
		t.Errorf("AddChecked: got %v, %v", got, err)
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); !got.Equal(VND(0)) {
		t.Errorf("empty sum: got %v", got)
	}
	if got := Sum(VND(1), VND(2), VND(3)); !got.Equal(VND(6)) {
		t.Errorf("got %v, want %v", got, VND(6))
	}
}
