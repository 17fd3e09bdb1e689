package repository

import (
	"context"

	"tripcast-service/internal/domain/entity"
)

// FlightRepository searches a flight partner
type FlightRepository interface {
	Name() string
	IsAvailable() bool
	SearchFlights(ctx context.Context, query entity.FlightQuery) ([]entity.FlightOffer, error)
}

// HotelRepository searches a hotel partner
type HotelRepository interface {
	Name() string
	IsAvailable() bool
	SearchHotels(ctx context.Context, query entity.HotelQuery) ([]entity.HotelOffer, error)
}

// TourRepository searches a tours and activities partner
type TourRepository interface {
	Name() string
	IsAvailable() bool
	SearchTours(ctx context.Context, city string) ([]entity.TourOffer, error)
}
