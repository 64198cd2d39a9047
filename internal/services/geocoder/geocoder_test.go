package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestService(baseURL string) *GeocoderService {
	return &GeocoderService{
		baseURL:   baseURL,
		userAgent: "swapmap-api-test",
		client:    &http.Client{Timeout: 2 * time.Second},
	}
}

func TestReverseGeocodeCity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		w.Write([]byte(`{"address": {"city": "Берлин", "country": "Германия"}}`))
	}))
	defer server.Close()

	loc := newTestService(server.URL).ReverseGeocode(context.Background(), 52.52, 13.405)
	assert.Equal(t, "Берлин", loc.City)
	assert.Equal(t, "Германия", loc.Country)
	assert.Equal(t, "Берлин, Германия", loc.DisplayLocation)
}

func TestReverseGeocodeVillageFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {"village": "Вятское", "country": "Россия"}}`))
	}))
	defer server.Close()

	loc := newTestService(server.URL).ReverseGeocode(context.Background(), 57.87, 40.27)
	assert.Equal(t, "Вятское", loc.City)
}

func TestReverseGeocodeDegradesOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loc := newTestService(server.URL).ReverseGeocode(context.Background(), 0, 0)
	assert.Equal(t, UnknownLocation, loc)
}

func TestReverseGeocodeDegradesOnUnreachable(t *testing.T) {
	// Сервер сразу закрыт — запрос обязан деградировать, а не упасть
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	loc := newTestService(server.URL).ReverseGeocode(context.Background(), 0, 0)
	assert.Equal(t, UnknownLocation, loc)
}

func TestReverseGeocodeEmptyAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address": {}}`))
	}))
	defer server.Close()

	loc := newTestService(server.URL).ReverseGeocode(context.Background(), 0, 0)
	assert.Equal(t, UnknownLocation, loc)
}
