package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"support_directory_go/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Geocoder resolves a UK postcode to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, postcode string) (models.Location, error)
}

// DefaultGeocoderURL is the public postcodes.io API
const DefaultGeocoderURL = "https://api.postcodes.io"

type postcodeResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Result *struct {
		Postcode  string   `json:"postcode"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

// PostcodeGeocoder looks postcodes up against a postcodes.io compatible API
type PostcodeGeocoder struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewPostcodeGeocoder(baseURL string, logger *zap.Logger) *PostcodeGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &PostcodeGeocoder{httpClient: client, logger: logger}
}

// Client exposes the underlying HTTP client
func (g *PostcodeGeocoder) Client() *resty.Client {
	return g.httpClient
}

// NormalizePostcode upper-cases a postcode and strips whitespace
func NormalizePostcode(postcode string) string {
	return strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
}

func (g *PostcodeGeocoder) Geocode(ctx context.Context, postcode string) (models.Location, error) {
	normalized := NormalizePostcode(postcode)
	if normalized == "" {
		return models.Location{}, NewValidationError("postcode is required for geocoding")
	}

	var response postcodeResponse
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetPathParam("postcode", normalized).
		SetResult(&response).
		SetError(&response).
		Get("/postcodes/{postcode}")
	if err != nil {
		g.logger.Warn("Postcode lookup failed", zap.String("postcode", normalized), zap.Error(err))
		return models.Location{}, fmt.Errorf("postcode lookup: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return models.Location{}, fmt.Errorf("postcode %s not found", normalized)
	}
	if resp.IsError() {
		return models.Location{}, fmt.Errorf("postcode lookup returned status %d", resp.StatusCode())
	}
	if response.Result == nil || response.Result.Latitude == nil || response.Result.Longitude == nil {
		return models.Location{}, fmt.Errorf("postcode %s has no coordinates", normalized)
	}

	loc := models.Location{Latitude: *response.Result.Latitude, Longitude: *response.Result.Longitude}
	if err := ValidateLocation(loc); err != nil {
		return models.Location{}, err
	}
	return loc, nil
}
