package repository

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"

	"github.com/samber/lo"
)

const (
	maxFlightOffers   = 5
	maxHotelIDs       = 20
	maxTourOffers     = 10
	activityRadiusKm  = 20
	amadeusDateLayout = "2006-01-02"
)

// AmadeusFlightRepository searches flight offers
type AmadeusFlightRepository struct {
	client *AmadeusClient
}

// NewAmadeusFlightRepository creates a flight repository backed by Amadeus
func NewAmadeusFlightRepository(client *AmadeusClient) repository.FlightRepository {
	return &AmadeusFlightRepository{client: client}
}

func (r *AmadeusFlightRepository) Name() string      { return amadeusProviderName }
func (r *AmadeusFlightRepository) IsAvailable() bool { return r.client.IsAvailable() }

type amadeusSegment struct {
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
	Departure   struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IATACode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
}

// SearchFlights returns round-trip offers priced in USD
func (r *AmadeusFlightRepository) SearchFlights(ctx context.Context, q entity.FlightQuery) ([]entity.FlightOffer, error) {
	city, err := r.client.resolveCity(ctx, q.Destination)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("originLocationCode", strings.ToUpper(strings.TrimSpace(q.Origin)))
	query.Set("destinationLocationCode", city.IATACode)
	query.Set("departureDate", q.DepartDate)
	if q.ReturnDate != "" {
		query.Set("returnDate", q.ReturnDate)
	}
	query.Set("adults", strconv.Itoa(lo.Max([]int{q.Adults, 1})))
	query.Set("currencyCode", "USD")
	query.Set("max", strconv.Itoa(maxFlightOffers))

	var response struct {
		Data []struct {
			ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
			Itineraries            []struct {
				Segments []amadeusSegment `json:"segments"`
			} `json:"itineraries"`
			Price struct {
				GrandTotal string `json:"grandTotal"`
				Currency   string `json:"currency"`
			} `json:"price"`
		} `json:"data"`
	}
	if err := r.client.getJSON(ctx, "/v2/shopping/flight-offers", query, &response); err != nil {
		return nil, err
	}

	var offers []entity.FlightOffer
	for _, d := range response.Data {
		price, err := strconv.ParseFloat(d.Price.GrandTotal, 64)
		if err != nil || len(d.Itineraries) == 0 {
			continue
		}
		offer := entity.FlightOffer{
			Outbound: flightLeg(d.Itineraries[0].Segments),
			PriceUSD: price,
		}
		if len(d.Itineraries) > 1 {
			offer.Return = flightLeg(d.Itineraries[1].Segments)
		}
		offer.Airline = offer.Outbound.Airline
		if len(d.ValidatingAirlineCodes) > 0 {
			offer.Airline = d.ValidatingAirlineCodes[0]
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// flightLeg collapses the segments of one itinerary into a single leg
func flightLeg(segments []amadeusSegment) entity.FlightLeg {
	if len(segments) == 0 {
		return entity.FlightLeg{}
	}
	first, last := segments[0], segments[len(segments)-1]
	return entity.FlightLeg{
		Airline:      first.CarrierCode,
		FlightNumber: first.CarrierCode + first.Number,
		From:         first.Departure.IATACode,
		To:           last.Arrival.IATACode,
		DepartAt:     first.Departure.At,
		ArriveAt:     last.Arrival.At,
	}
}

// AmadeusHotelRepository searches hotel offers
type AmadeusHotelRepository struct {
	client *AmadeusClient
}

// NewAmadeusHotelRepository creates a hotel repository backed by Amadeus
func NewAmadeusHotelRepository(client *AmadeusClient) repository.HotelRepository {
	return &AmadeusHotelRepository{client: client}
}

func (r *AmadeusHotelRepository) Name() string      { return amadeusProviderName }
func (r *AmadeusHotelRepository) IsAvailable() bool { return r.client.IsAvailable() }

type amadeusHotelRef struct {
	HotelID string `json:"hotelId"`
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
}

// SearchHotels lists hotels in the city and prices them for the stay
func (r *AmadeusHotelRepository) SearchHotels(ctx context.Context, q entity.HotelQuery) ([]entity.HotelOffer, error) {
	city, err := r.client.resolveCity(ctx, q.City)
	if err != nil {
		return nil, err
	}

	var hotels struct {
		Data []amadeusHotelRef `json:"data"`
	}
	byCity := url.Values{}
	byCity.Set("cityCode", city.IATACode)
	if err := r.client.getJSON(ctx, "/v1/reference-data/locations/hotels/by-city", byCity, &hotels); err != nil {
		return nil, err
	}
	if len(hotels.Data) == 0 {
		return nil, nil
	}

	ratings := make(map[string]int, len(hotels.Data))
	ids := lo.Map(lo.Slice(hotels.Data, 0, maxHotelIDs), func(h amadeusHotelRef, _ int) string {
		ratings[h.HotelID] = h.Rating
		return h.HotelID
	})

	nights := stayNights(q.CheckIn, q.CheckOut)

	query := url.Values{}
	query.Set("hotelIds", strings.Join(ids, ","))
	query.Set("adults", strconv.Itoa(lo.Max([]int{q.Adults, 1})))
	query.Set("checkInDate", q.CheckIn)
	query.Set("checkOutDate", q.CheckOut)
	query.Set("currency", "USD")

	var response struct {
		Data []struct {
			Hotel struct {
				HotelID string `json:"hotelId"`
				Name    string `json:"name"`
			} `json:"hotel"`
			Offers []struct {
				Price struct {
					Total    string `json:"total"`
					Currency string `json:"currency"`
				} `json:"price"`
			} `json:"offers"`
		} `json:"data"`
	}
	if err := r.client.getJSON(ctx, "/v3/shopping/hotel-offers", query, &response); err != nil {
		return nil, err
	}

	var offers []entity.HotelOffer
	for _, d := range response.Data {
		if len(d.Offers) == 0 {
			continue
		}
		total, err := strconv.ParseFloat(d.Offers[0].Price.Total, 64)
		if err != nil {
			continue
		}
		offers = append(offers, entity.HotelOffer{
			City:           q.City,
			Name:           d.Hotel.Name,
			Rating:         float64(ratings[d.Hotel.HotelID]),
			NightlyCostUSD: total / float64(nights),
		})
	}
	return offers, nil
}

func stayNights(checkIn, checkOut string) int {
	in, err1 := time.Parse(amadeusDateLayout, checkIn)
	out, err2 := time.Parse(amadeusDateLayout, checkOut)
	if err1 != nil || err2 != nil {
		return 1
	}
	if n := int(out.Sub(in).Hours() / 24); n > 0 {
		return n
	}
	return 1
}

// AmadeusTourRepository searches tours and activities
type AmadeusTourRepository struct {
	client *AmadeusClient
}

// NewAmadeusTourRepository creates a tour repository backed by Amadeus
func NewAmadeusTourRepository(client *AmadeusClient) repository.TourRepository {
	return &AmadeusTourRepository{client: client}
}

func (r *AmadeusTourRepository) Name() string      { return amadeusProviderName }
func (r *AmadeusTourRepository) IsAvailable() bool { return r.client.IsAvailable() }

// SearchTours lists activities around the city centre
func (r *AmadeusTourRepository) SearchTours(ctx context.Context, cityName string) ([]entity.TourOffer, error) {
	city, err := r.client.resolveCity(ctx, cityName)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(city.Latitude, 'f', 5, 64))
	query.Set("longitude", strconv.FormatFloat(city.Longitude, 'f', 5, 64))
	query.Set("radius", strconv.Itoa(activityRadiusKm))

	var response struct {
		Data []struct {
			Name            string `json:"name"`
			MinimumDuration string `json:"minimumDuration"`
			BookingLink     string `json:"bookingLink"`
			Price           struct {
				Amount       string `json:"amount"`
				CurrencyCode string `json:"currencyCode"`
			} `json:"price"`
		} `json:"data"`
	}
	if err := r.client.getJSON(ctx, "/v1/shopping/activities", query, &response); err != nil {
		return nil, err
	}

	var tours []entity.TourOffer
	for _, d := range lo.Slice(response.Data, 0, maxTourOffers) {
		if d.Name == "" {
			continue
		}
		amount, _ := strconv.ParseFloat(d.Price.Amount, 64)
		tours = append(tours, entity.TourOffer{
			City:          cityName,
			Name:          d.Name,
			DurationHours: parseDurationHours(d.MinimumDuration),
			CostUSD:       amount,
			BookingURL:    d.BookingLink,
		})
	}
	return tours, nil
}

// parseDurationHours reads values such as "3 hours", "90 minutes" or "1 day"
func parseDurationHours(s string) float64 {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	switch unit := fields[1]; {
	case strings.HasPrefix(unit, "min"):
		return n / 60
	case strings.HasPrefix(unit, "day"):
		return n * 24
	case strings.HasPrefix(unit, "h"):
		return n
	}
	return 0
}
