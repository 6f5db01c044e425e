package parking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	FreeDurationCar  = 30
	FreeDurationBike = 30
)

var (
	CarRatePerMinute          = decimal.RequireFromString("0.025")
	BikeRatePerMinute         = decimal.RequireFromString("0.016")
	ReturningCustomerDiscount = decimal.RequireFromString("0.95")
)

type Rate struct {
	FreeMinutes int
	PerMinute   decimal.Decimal
}

// FarePolicy prices a parking duration. Once the free threshold is exceeded the
// whole duration is billed, not just the minutes past the threshold.
type FarePolicy struct {
	rates    map[VehicleCategory]Rate
	discount decimal.Decimal
}

func NewFarePolicy() *FarePolicy {
	return &FarePolicy{
		rates: map[VehicleCategory]Rate{
			CategoryCar:  {FreeMinutes: FreeDurationCar, PerMinute: CarRatePerMinute},
			CategoryBike: {FreeMinutes: FreeDurationBike, PerMinute: BikeRatePerMinute},
		},
		discount: ReturningCustomerDiscount,
	}
}

func (p *FarePolicy) Rate(category VehicleCategory) (Rate, error) {
	rate, ok := p.rates[category]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(category))
	}
	return rate, nil
}

func (p *FarePolicy) ComputeFare(durationMinutes int, category VehicleCategory, discountEligible bool) (decimal.Decimal, error) {
	rate, err := p.Rate(category)
	if err != nil {
		return decimal.Zero, err
	}
	if durationMinutes < 0 {
		return decimal.Zero, fmt.Errorf("%w: %d minutes", ErrNegativeDuration, durationMinutes)
	}

	price := decimal.Zero
	if durationMinutes > rate.FreeMinutes {
		price = decimal.NewFromInt(int64(durationMinutes)).Mul(rate.PerMinute)
	}
	if discountEligible {
		price = price.Mul(p.discount)
	}
	return price, nil
}
