package parking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "expected %s, got %s", want, got)
}

func TestComputeFareFreeThreshold(t *testing.T) {
	policy := NewFarePolicy()

	for _, category := range []VehicleCategory{CategoryCar, CategoryBike} {
		for _, discount := range []bool{false, true} {
			for minutes := 0; minutes <= 30; minutes++ {
				price, err := policy.ComputeFare(minutes, category, discount)
				require.NoError(t, err)
				assert.Truef(t, price.IsZero(), "%s %d min discount=%t: got %s", category, minutes, discount, price)
			}
		}
	}
}

func TestComputeFareBillsWholeDurationPastThreshold(t *testing.T) {
	policy := NewFarePolicy()

	tests := []struct {
		name     string
		minutes  int
		category VehicleCategory
		discount bool
		want     string
	}{
		{"car one minute past threshold", 31, CategoryCar, false, "0.775"},
		{"car one hour", 60, CategoryCar, false, "1.5"},
		{"car one hour discounted", 60, CategoryCar, true, "1.425"},
		{"bike 45 minutes", 45, CategoryBike, false, "0.72"},
		{"bike one hour", 60, CategoryBike, false, "0.96"},
		{"bike one hour discounted", 60, CategoryBike, true, "0.912"},
		{"car one day discounted", 1440, CategoryCar, true, "34.2"},
		{"car one day", 1440, CategoryCar, false, "36"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := policy.ComputeFare(tt.minutes, tt.category, tt.discount)
			require.NoError(t, err)
			requireDecimal(t, tt.want, price)
		})
	}
}

func TestComputeFareMatchesRateFormula(t *testing.T) {
	policy := NewFarePolicy()

	for minutes := 31; minutes <= 600; minutes += 7 {
		d := decimal.NewFromInt(int64(minutes))

		car, err := policy.ComputeFare(minutes, CategoryCar, false)
		require.NoError(t, err)
		assert.True(t, d.Mul(CarRatePerMinute).Equal(car))

		carDiscounted, err := policy.ComputeFare(minutes, CategoryCar, true)
		require.NoError(t, err)
		assert.True(t, d.Mul(CarRatePerMinute).Mul(ReturningCustomerDiscount).Equal(carDiscounted))

		bike, err := policy.ComputeFare(minutes, CategoryBike, false)
		require.NoError(t, err)
		assert.True(t, d.Mul(BikeRatePerMinute).Equal(bike))
	}
}

func TestComputeFareIsDeterministic(t *testing.T) {
	policy := NewFarePolicy()

	first, err := policy.ComputeFare(97, CategoryBike, true)
	require.NoError(t, err)
	second, err := policy.ComputeFare(97, CategoryBike, true)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestComputeFareRejectsInvalidInput(t *testing.T) {
	policy := NewFarePolicy()

	_, err := policy.ComputeFare(-1, CategoryCar, false)
	assert.ErrorIs(t, err, ErrNegativeDuration)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = policy.ComputeFare(60, VehicleCategory("TRUCK"), false)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = policy.ComputeFare(60, VehicleCategory(""), false)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
