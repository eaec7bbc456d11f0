package usage

import "github.com/nhatro/rentledger/types"

// Default per-unit prices in dong.
const (
	ElectricRate int64 = 5000  // VND per kWh
	WaterRate    int64 = 10000 // VND per m³
)

// MaxReading is the largest meter reading accepted, well past any real
// meter's rollover.
const MaxReading int64 = 1_000_000_000

// Rates holds the unit prices used to turn usage into money.
type Rates struct {
	Electric types.Money `json:"electric"`
	Water    types.Money `json:"water"`
}

// DefaultRates returns the standard electric and water prices.
func DefaultRates() Rates {
	return Rates{
		Electric: types.VND(ElectricRate),
		Water:    types.VND(WaterRate),
	}
}

// ElectricCost prices the electric component of u.
func (r Rates) ElectricCost(u Readings) types.Money { return r.Electric.Multiply(u.Electric) }

// WaterCost prices the water component of u.
func (r Rates) WaterCost(u Readings) types.Money { return r.Water.Multiply(u.Water) }

// Bill computes baseRent + electric usage × electric rate + water usage ×
// water rate.
func (r Rates) Bill(baseRent types.Money, u Readings) types.Money {
	return baseRent.Add(r.ElectricCost(u)).Add(r.WaterCost(u))
}

// CheckedBill is Bill with overflow detection; it returns types.ErrOverflow
// when the bill does not fit in an int64 amount.
func (r Rates) CheckedBill(baseRent types.Money, u Readings) (types.Money, error) {
	electric, err := r.Electric.MultiplyChecked(u.Electric)
	if err != nil {
		return types.Money{}, err
	}
	water, err := r.Water.MultiplyChecked(u.Water)
	if err != nil {
		return types.Money{}, err
	}
	bill, err := baseRent.AddChecked(electric)
	if err != nil {
		return types.Money{}, err
	}
	return bill.AddChecked(water)
}
