package parking

import (
	"fmt"
	"strings"
)

type VehicleCategory string

const (
	CategoryCar  VehicleCategory = "CAR"
	CategoryBike VehicleCategory = "BIKE"
)

// Menu selections offered by the console.
const (
	SelectionCar  = 1
	SelectionBike = 2
)

func (c VehicleCategory) Valid() bool {
	switch c {
	case CategoryCar, CategoryBike:
		return true
	}
	return false
}

func (c VehicleCategory) String() string {
	return string(c)
}

// ParseVehicleCategory accepts the category name in any letter case.
func ParseVehicleCategory(s string) (VehicleCategory, error) {
	c := VehicleCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func CategoryFromSelection(selection int) (VehicleCategory, error) {
	switch selection {
	case SelectionCar:
		return CategoryCar, nil
	case SelectionBike:
		return CategoryBike, nil
	default:
		return "", fmt.Errorf("%w: selection %d", ErrUnknownCategory, selection)
	}
}
