package entity

// TripOption is one priced itinerary candidate produced by Phase 2
type TripOption struct {
	Index        int            `bson:"index" json:"index"`
	Title        string         `bson:"title" json:"title"`
	TotalCostUSD float64        `bson:"totalCostUsd" json:"total_cost_usd"`
	Flights      FlightPair     `bson:"flights" json:"flights"`
	Hotels       []HotelStay    `bson:"hotels" json:"hotels"`
	Tours        []Tour         `bson:"tours" json:"tours"`
	Highlights   []string       `bson:"highlights" json:"highlights"`
	Itinerary    []ItineraryDay `bson:"itinerary,omitempty" json:"itinerary,omitempty"`
}

// LineItemTotal sums flights, hotel nights and tours
func (o TripOption) LineItemTotal() float64 {
	total := o.Flights.PriceUSD
	for _, h := range o.Hotels {
		total += float64(h.Nights) * h.NightlyCostUSD
	}
	for _, t := range o.Tours {
		total += t.CostUSD
	}
	return total
}

// FlightPair is a round trip
type FlightPair struct {
	Outbound FlightLeg `bson:"outbound" json:"outbound"`
	Return   FlightLeg `bson:"return" json:"return"`
	PriceUSD float64   `bson:"priceUsd" json:"price_usd"`
}

// FlightLeg is one direction of a round trip
type FlightLeg struct {
	Airline      string `bson:"airline" json:"airline"`
	FlightNumber string `bson:"flightNumber" json:"flight_number"`
	From         string `bson:"from" json:"from"`
	To           string `bson:"to" json:"to"`
	DepartAt     string `bson:"departAt" json:"depart_at"`
	ArriveAt     string `bson:"arriveAt" json:"arrive_at"`
}

// HotelStay is a stay in one confirmed destination
type HotelStay struct {
	City           string  `bson:"city" json:"city"`
	Name           string  `bson:"name" json:"name"`
	Rating         float64 `bson:"rating" json:"rating"`
	Nights         int     `bson:"nights" json:"nights"`
	NightlyCostUSD float64 `bson:"nightlyCostUsd" json:"nightly_cost_usd"`
	BookingURL     string  `bson:"bookingUrl,omitempty" json:"booking_url,omitempty"`
}

// Tour is a bookable activity in one confirmed destination
type Tour struct {
	City          string  `bson:"city" json:"city"`
	Name          string  `bson:"name" json:"name"`
	DurationHours float64 `bson:"durationHours" json:"duration_hours"`
	CostUSD       float64 `bson:"costUsd" json:"cost_usd"`
	BookingURL    string  `bson:"bookingUrl,omitempty" json:"booking_url,omitempty"`
}

// ItineraryDay is one day of a generated day-by-day plan
type ItineraryDay struct {
	Day        int      `bson:"day" json:"day"`
	City       string   `bson:"city" json:"city"`
	Title      string   `bson:"title" json:"title"`
	Activities []string `bson:"activities" json:"activities"`
	Notes      string   `bson:"notes,omitempty" json:"notes,omitempty"`
}
