package service

import (
	"context"
	"math"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// Pricer computes the total price of a set of seats for a showtime.
type Pricer interface {
	Price(ctx context.Context, showtime *model.Showtime, seats []model.Seat) (uint32, error)
}

// FlatRate charges the same amount for every seat regardless of type.
type FlatRate struct {
	CentsPerSeat uint32
}

func (f FlatRate) Price(_ context.Context, _ *model.Showtime, seats []model.Seat) (uint32, error) {
	total := uint64(f.CentsPerSeat) * uint64(len(seats))
	if total > math.MaxUint32 {
		return 0, invalidRequest("total price exceeds supported range")
	}
	return uint32(total), nil
}
