package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "LS11UR", NormalizePostcode(" ls1  1ur "))
	assert.Equal(t, "SW1A1AA", NormalizePostcode("SW1A 1AA"))
	assert.Equal(t, "", NormalizePostcode("   "))
}

func TestPostcodeGeocoder(t *testing.T) {
	geocoder := NewPostcodeGeocoder("https://geo.test", zap.NewNop())
	httpmock.ActivateNonDefault(geocoder.Client().GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://geo.test/postcodes/LS11UR",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"status": 200,
			"result": map[string]interface{}{"postcode": "LS1 1UR", "latitude": 53.7997, "longitude": -1.5492},
		}))
	httpmock.RegisterResponder(http.MethodGet, "https://geo.test/postcodes/ZZ99ZZ",
		httpmock.NewJsonResponderOrPanic(http.StatusNotFound, map[string]interface{}{"status": 404, "error": "Postcode not found"}))
	httpmock.RegisterResponder(http.MethodGet, "https://geo.test/postcodes/GY11AA",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"status": 200,
			"result": map[string]interface{}{"postcode": "GY1 1AA", "latitude": nil, "longitude": nil},
		}))
	httpmock.RegisterResponder(http.MethodGet, "https://geo.test/postcodes/XX11XX",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{
			"status": 200,
			"result": map[string]interface{}{"postcode": "XX1 1XX", "latitude": 123.0, "longitude": 0.0},
		}))

	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		loc, err := geocoder.Geocode(ctx, "ls1 1ur")
		require.NoError(t, err)
		assert.InDelta(t, 53.7997, loc.Latitude, 1e-9)
		assert.InDelta(t, -1.5492, loc.Longitude, 1e-9)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := geocoder.Geocode(ctx, "ZZ9 9ZZ")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ZZ99ZZ not found")
	})

	t.Run("NoCoordinates", func(t *testing.T) {
		_, err := geocoder.Geocode(ctx, "GY1 1AA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no coordinates")
	})

	t.Run("OutOfRangeCoordinates", func(t *testing.T) {
		_, err := geocoder.Geocode(ctx, "XX1 1XX")
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("EmptyPostcode", func(t *testing.T) {
		_, err := geocoder.Geocode(ctx, "  ")
		assert.True(t, IsKind(err, KindValidation))
	})
}
