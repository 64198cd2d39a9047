package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rajivgeraev/swapmap-api/internal/config"
)

// Location представляет огрубленное местоположение для отображения
type Location struct {
	City            string `json:"city"`
	Country         string `json:"country"`
	DisplayLocation string `json:"display_location"`
}

// UnknownLocation возвращается при любой ошибке геокодирования
var UnknownLocation = Location{DisplayLocation: "Unknown Location"}

// GeocoderService выполняет обратное геокодирование координат
type GeocoderService struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewGeocoderService создает новый экземпляр GeocoderService
func NewGeocoderService(cfg *config.Config) *GeocoderService {
	return &GeocoderService{
		baseURL:   cfg.GeocoderConfig.BaseURL,
		userAgent: cfg.GeocoderConfig.UserAgent,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// nominatimResponse представляет ответ Nominatim-совместимого геокодера
type nominatimResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

// ReverseGeocode преобразует координаты в город и страну.
// Любая ошибка деградирует до UnknownLocation — запрос пользователя
// из-за геокодера не падает.
func (s *GeocoderService) ReverseGeocode(ctx context.Context, lat, lng float64) Location {
	url := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%f&lon=%f&zoom=10", s.baseURL, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("Ошибка создания запроса геокодера: %v", err)
		return UnknownLocation
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("Ошибка запроса к геокодеру: %v", err)
		return UnknownLocation
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Геокодер вернул статус %d", resp.StatusCode)
		return UnknownLocation
	}

	var data nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Printf("Ошибка разбора ответа геокодера: %v", err)
		return UnknownLocation
	}

	// Nominatim кладет населенный пункт в разные поля в зависимости от размера
	city := data.Address.City
	if city == "" {
		city = data.Address.Town
	}
	if city == "" {
		city = data.Address.Village
	}

	if city == "" && data.Address.Country == "" {
		return UnknownLocation
	}

	display := city
	if display != "" && data.Address.Country != "" {
		display += ", " + data.Address.Country
	} else if display == "" {
		display = data.Address.Country
	}

	return Location{
		City:            city,
		Country:         data.Address.Country,
		DisplayLocation: display,
	}
}
