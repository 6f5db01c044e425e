package parking

import "fmt"

type Spot struct {
	ID        int             `json:"id"`
	Category  VehicleCategory `json:"category"`
	Available bool            `json:"available"`
}

func NewSpot(id int, category VehicleCategory) Spot {
	return Spot{
		ID:        id,
		Category:  category,
		Available: true,
	}
}

// NewLayout numbers car spots from 1 and bike spots right after them.
func NewLayout(cars, bikes int) ([]Spot, error) {
	if cars < 0 || bikes < 0 {
		return nil, fmt.Errorf("%w: spot counts must not be negative", ErrValidation)
	}
	if cars+bikes == 0 {
		return nil, fmt.Errorf("%w: layout needs at least one spot", ErrValidation)
	}

	spots := make([]Spot, 0, cars+bikes)
	for i := 0; i < cars; i++ {
		spots = append(spots, NewSpot(len(spots)+1, CategoryCar))
	}
	for i := 0; i < bikes; i++ {
		spots = append(spots, NewSpot(len(spots)+1, CategoryBike))
	}
	return spots, nil
}

// SetAvailability is a conditional transition: it fails when the spot already
// has the requested availability.
func (s *Spot) SetAvailability(available bool) error {
	if s.Available == available {
		return fmt.Errorf("%w: spot %d available=%t", ErrSpotConflict, s.ID, s.Available)
	}
	s.Available = available
	return nil
}
