package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/infrastructure/oauth"
	"tripcast-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amadeusStub struct {
	server     *httptest.Server
	cityLookup int32
}

func newAmadeusStub(t *testing.T) *amadeusStub {
	stub := &amadeusStub{}
	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			writeJSON(w, map[string]interface{}{"access_token": "tok", "token_type": "Bearer", "expires_in": 1799})
			return
		}
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/v1/reference-data/locations/cities":
			atomic.AddInt32(&stub.cityLookup, 1)
			assert.Equal(t, "Lisbon", r.URL.Query().Get("keyword"))
			writeJSON(w, map[string]interface{}{"data": []interface{}{
				map[string]interface{}{"name": "LISBON", "iataCode": "LIS", "geoCode": map[string]float64{"latitude": 38.72, "longitude": -9.14}},
			}})
		case "/v2/shopping/flight-offers":
			q := r.URL.Query()
			assert.Equal(t, "JFK", q.Get("originLocationCode"))
			assert.Equal(t, "LIS", q.Get("destinationLocationCode"))
			assert.Equal(t, "2", q.Get("adults"))
			writeJSON(w, map[string]interface{}{"data": []interface{}{
				map[string]interface{}{
					"validatingAirlineCodes": []string{"TP"},
					"price":                  map[string]string{"grandTotal": "812.40", "currency": "USD"},
					"itineraries": []interface{}{
						map[string]interface{}{"segments": []interface{}{
							map[string]interface{}{"carrierCode": "TP", "number": "202", "departure": map[string]string{"iataCode": "JFK", "at": "2026-05-01T22:00:00"}, "arrival": map[string]string{"iataCode": "LIS", "at": "2026-05-02T10:00:00"}},
						}},
						map[string]interface{}{"segments": []interface{}{
							map[string]interface{}{"carrierCode": "TP", "number": "201", "departure": map[string]string{"iataCode": "LIS", "at": "2026-05-07T12:00:00"}, "arrival": map[string]string{"iataCode": "JFK", "at": "2026-05-07T15:00:00"}},
						}},
					},
				},
				map[string]interface{}{"price": map[string]string{"grandTotal": "n/a"}},
			}})
		case "/v1/reference-data/locations/hotels/by-city":
			assert.Equal(t, "LIS", r.URL.Query().Get("cityCode"))
			writeJSON(w, map[string]interface{}{"data": []interface{}{
				map[string]interface{}{"hotelId": "H1", "name": "Alfama Inn", "rating": 4},
				map[string]interface{}{"hotelId": "H2", "name": "Baixa House", "rating": 3},
			}})
		case "/v3/shopping/hotel-offers":
			q := r.URL.Query()
			assert.Equal(t, "H1,H2", q.Get("hotelIds"))
			assert.Equal(t, "2026-05-01", q.Get("checkInDate"))
			writeJSON(w, map[string]interface{}{"data": []interface{}{
				map[string]interface{}{
					"hotel":  map[string]string{"hotelId": "H1", "name": "Alfama Inn"},
					"offers": []interface{}{map[string]interface{}{"price": map[string]string{"total": "450.00", "currency": "USD"}}},
				},
				map[string]interface{}{"hotel": map[string]string{"hotelId": "H2", "name": "Baixa House"}, "offers": []interface{}{}},
			}})
		case "/v1/shopping/activities":
			assert.Equal(t, "38.72000", r.URL.Query().Get("latitude"))
			writeJSON(w, map[string]interface{}{"data": []interface{}{
				map[string]interface{}{"name": "Tram 28 tour", "minimumDuration": "90 minutes", "bookingLink": "https://tours.example.com/28", "price": map[string]string{"amount": "35.00", "currencyCode": "USD"}},
				map[string]interface{}{"name": ""},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *amadeusStub) client() *AmadeusClient {
	log := logger.NewNopLogger()
	auth := oauth.NewAmadeusOAuth(s.server.URL, "id", "secret", log)
	return NewAmadeusClient(s.server.URL, auth, 5*time.Second, log)
}

func TestAmadeusFlightRepository_SearchFlights(t *testing.T) {
	stub := newAmadeusStub(t)
	repo := NewAmadeusFlightRepository(stub.client())
	require.True(t, repo.IsAvailable())
	assert.Equal(t, "amadeus", repo.Name())

	offers, err := repo.SearchFlights(context.Background(), entity.FlightQuery{
		Origin: "jfk", Destination: "Lisbon, Portugal", DepartDate: "2026-05-01", ReturnDate: "2026-05-07", Adults: 2,
	})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "TP", offers[0].Airline)
	assert.InDelta(t, 812.40, offers[0].PriceUSD, 0.001)
	assert.Equal(t, "TP202", offers[0].Outbound.FlightNumber)
	assert.Equal(t, "LIS", offers[0].Outbound.To)
	assert.Equal(t, "JFK", offers[0].Return.To)
}

func TestAmadeusHotelRepository_SearchHotels(t *testing.T) {
	stub := newAmadeusStub(t)
	repo := NewAmadeusHotelRepository(stub.client())

	offers, err := repo.SearchHotels(context.Background(), entity.HotelQuery{
		City: "Lisbon", CheckIn: "2026-05-01", CheckOut: "2026-05-04", Adults: 2,
	})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "Alfama Inn", offers[0].Name)
	assert.Equal(t, "Lisbon", offers[0].City)
	assert.Equal(t, 4.0, offers[0].Rating)
	assert.InDelta(t, 150.0, offers[0].NightlyCostUSD, 0.001)
}

func TestAmadeusTourRepository_SearchToursCachesCity(t *testing.T) {
	stub := newAmadeusStub(t)
	repo := NewAmadeusTourRepository(stub.client())

	for i := 0; i < 2; i++ {
		tours, err := repo.SearchTours(context.Background(), "Lisbon")
		require.NoError(t, err)
		require.Len(t, tours, 1)
		assert.Equal(t, "Tram 28 tour", tours[0].Name)
		assert.InDelta(t, 1.5, tours[0].DurationHours, 0.001)
		assert.Equal(t, 35.0, tours[0].CostUSD)
		assert.Equal(t, "https://tours.example.com/28", tours[0].BookingURL)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&stub.cityLookup))
}

func TestAmadeusClient_NotConfigured(t *testing.T) {
	log := logger.NewNopLogger()
	client := NewAmadeusClient("https://test.api.amadeus.com", oauth.NewAmadeusOAuth("https://test.api.amadeus.com", "", "", log), time.Second, log)
	repo := NewAmadeusTourRepository(client)

	assert.False(t, repo.IsAvailable())
	_, err := repo.SearchTours(context.Background(), "Lisbon")
	assert.Error(t, err)
}

func TestParseDurationHours(t *testing.T) {
	assert.Equal(t, 3.0, parseDurationHours("3 hours"))
	assert.Equal(t, 24.0, parseDurationHours("1 day"))
	assert.Equal(t, 0.0, parseDurationHours("flexible"))
}
