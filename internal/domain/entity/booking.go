package entity

// Booking kinds used for enrichment cache keys
const (
	BookingKindHotel = "hotel"
	BookingKindTour  = "tour"
)

// FlightQuery is a round-trip flight search
type FlightQuery struct {
	Origin      string
	Destination string
	DepartDate  string
	ReturnDate  string
	Adults      int
}

// FlightOffer is a priced round trip returned by a flight provider
type FlightOffer struct {
	Airline  string    `json:"airline"`
	Outbound FlightLeg `json:"outbound"`
	Return   FlightLeg `json:"return"`
	PriceUSD float64   `json:"price_usd"`
}

// HotelQuery is a hotel search for one city
type HotelQuery struct {
	City     string
	CheckIn  string
	CheckOut string
	Adults   int
}

// HotelOffer is a hotel candidate returned by a hotel provider
type HotelOffer struct {
	City           string  `json:"city"`
	Name           string  `json:"name"`
	Rating         float64 `json:"rating"`
	NightlyCostUSD float64 `json:"nightly_cost_usd"`
}

// TourOffer is an activity returned by a tour provider
type TourOffer struct {
	City          string  `json:"city"`
	Name          string  `json:"name"`
	DurationHours float64 `json:"duration_hours"`
	CostUSD       float64 `json:"cost_usd"`
	BookingURL    string  `json:"booking_url,omitempty"`
}

// BookingSearchResults gathers what the partner APIs returned for one build
type BookingSearchResults struct {
	Flights []FlightOffer `json:"flights"`
	Hotels  []HotelOffer  `json:"hotels"`
	Tours   []TourOffer   `json:"tours"`
}
