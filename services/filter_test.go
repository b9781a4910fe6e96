package services

import (
	"math"
	"testing"

	"support_directory_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func housingDomain(t *testing.T) ResourceDomain {
	d, ok := DomainByKey(models.DomainHousing)
	require.True(t, ok)
	return d
}

// shelterAt places a shelter on the equator km kilometres east of (0, 0)
func shelterAt(name string, km float64) *models.HousingResource {
	lng := km / (earthRadiusKm * math.Pi / 180)
	return &models.HousingResource{ResourceBase: models.ResourceBase{
		ID:        name,
		Name:      name,
		Latitude:  float64Ptr(0),
		Longitude: float64Ptr(lng),
		IsActive:  true,
	}}
}

func TestNewFilterCriteria(t *testing.T) {
	origin := &models.Location{Latitude: 53.8, Longitude: -1.55}

	tests := []struct {
		name    string
		origin  *models.Location
		radius  *float64
		unit    DistanceUnit
		limit   int
		wantErr bool
	}{
		{"NoProximity", nil, nil, "", 0, false},
		{"Proximity", origin, float64Ptr(5), UnitMiles, 10, false},
		{"OriginWithoutRadius", origin, nil, "", 0, true},
		{"RadiusWithoutOrigin", nil, float64Ptr(5), "", 0, true},
		{"ZeroRadius", origin, float64Ptr(0), "", 0, true},
		{"NegativeRadius", origin, float64Ptr(-1), "", 0, true},
		{"NaNRadius", origin, float64Ptr(math.NaN()), "", 0, true},
		{"LatitudeOutOfRange", &models.Location{Latitude: 91}, float64Ptr(5), "", 0, true},
		{"UnknownUnit", nil, nil, DistanceUnit("parsecs"), 0, true},
		{"LimitTooLarge", nil, nil, "", MaxResultLimit + 1, true},
		{"NegativeLimit", nil, nil, "", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilterCriteria(tt.origin, tt.radius, tt.unit, nil, tt.limit)
			if tt.wantErr {
				assert.True(t, IsKind(err, KindValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("Defaults", func(t *testing.T) {
		c, err := NewFilterCriteria(nil, nil, "", nil, 0)
		require.NoError(t, err)
		assert.Equal(t, UnitKilometres, c.Unit())
		assert.Equal(t, DefaultResultLimit, c.Limit())
		_, ok := c.Origin()
		assert.False(t, ok)
	})

	t.Run("CallerMutationDoesNotLeak", func(t *testing.T) {
		options := map[string]string{"emergency": "true"}
		loc := models.Location{Latitude: 1, Longitude: 2}
		radius := 5.0

		c, err := NewFilterCriteria(&loc, &radius, "", options, 0)
		require.NoError(t, err)

		options["emergency"] = "false"
		options["acceptsDogs"] = "true"
		loc.Latitude = 50
		radius = 100

		v, _ := c.Option("emergency")
		assert.Equal(t, "true", v)
		_, ok := c.Option("acceptsDogs")
		assert.False(t, ok)
		o, _ := c.Origin()
		assert.Equal(t, 1.0, o.Latitude)
		r, _ := c.Radius()
		assert.Equal(t, 5.0, r)
	})
}

func TestCompose(t *testing.T) {
	domain := housingDomain(t)

	t.Run("OptionalPredicatesFollowVocabularyOrder", func(t *testing.T) {
		c, err := NewFilterCriteria(nil, nil, "", map[string]string{
			"type":        "hostel,night_shelter",
			"acceptsDogs": "true",
			"emergency":   "",
			"minBeds":     "2",
		}, 0)
		require.NoError(t, err)

		q, err := Compose(c, domain.Vocabulary)
		require.NoError(t, err)

		var fields []string
		for _, p := range q.Predicates {
			fields = append(fields, p.Field)
		}
		assert.Equal(t, []string{"is_active", "emergency", "accepts_dogs", "beds_available", "housing_type"}, fields)
		assert.False(t, q.HasProximity())
	})

	t.Run("Deterministic", func(t *testing.T) {
		options := map[string]string{"acceptsDogs": "yes", "q": "hope", "verified": "1"}
		origin := models.Location{Latitude: 53.8, Longitude: -1.55}
		c1, err := NewFilterCriteria(&origin, float64Ptr(5), "", options, 20)
		require.NoError(t, err)
		c2, err := NewFilterCriteria(&origin, float64Ptr(5), "", options, 20)
		require.NoError(t, err)

		q1, err := Compose(c1, domain.Vocabulary)
		require.NoError(t, err)
		q2, err := Compose(c2, domain.Vocabulary)
		require.NoError(t, err)

		assert.Equal(t, q1.Describe(), q2.Describe())
		assert.Contains(t, q1.Describe(), "latitude IS NOT NULL")
		assert.Contains(t, q1.Describe(), "LIMIT 20")
	})

	t.Run("ProximityBoundsCoordinates", func(t *testing.T) {
		origin := models.Location{Latitude: 53.8, Longitude: -1.55}
		c, err := NewFilterCriteria(&origin, float64Ptr(5), "", nil, 0)
		require.NoError(t, err)
		q, err := Compose(c, domain.Vocabulary)
		require.NoError(t, err)
		require.True(t, q.HasProximity())

		var bounds []string
		for _, p := range q.Predicates {
			if p.Operator == OpGte || p.Operator == OpLte {
				bounds = append(bounds, p.Field+" "+string(p.Operator))
			}
		}
		assert.Equal(t, []string{"latitude >=", "latitude <=", "longitude >=", "longitude <="}, bounds)
		assert.Contains(t, q.Describe(), "latitude >= 53.75")
	})

	t.Run("UnknownOptionsAreIgnored", func(t *testing.T) {
		c, err := NewFilterCriteria(nil, nil, "", map[string]string{"colour": "blue"}, 0)
		require.NoError(t, err)
		q, err := Compose(c, domain.Vocabulary)
		require.NoError(t, err)
		assert.Len(t, q.Predicates, 1)
	})

	t.Run("InvalidOptionValues", func(t *testing.T) {
		for _, options := range []map[string]string{
			{"acceptsDogs": "maybe"},
			{"minBeds": "lots"},
			{"type": "castle"},
		} {
			c, err := NewFilterCriteria(nil, nil, "", options, 0)
			require.NoError(t, err)
			_, err = Compose(c, domain.Vocabulary)
			assert.True(t, IsKind(err, KindValidation), "options %v", options)
		}
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, "50!% off", escapeLike("50% off"))
	assert.Equal(t, "a!_b", escapeLike("a_b"))
	assert.Equal(t, "wow!!", escapeLike("wow!"))
}

func TestRankByProximityRadiusBoundary(t *testing.T) {
	domain := housingDomain(t)

	rows := []*models.HousingResource{
		shelterAt("d20", 20),
		shelterAt("d5.1", 5.1),
		shelterAt("d5.0", 5.0),
		shelterAt("d4.9", 4.9),
		shelterAt("d1", 1),
	}
	origin := models.Location{}

	// The radius is exactly the computed distance of the 5.0 km shelter
	exact := DistanceKm(origin, models.Location{Longitude: *rows[2].Longitude})

	c, err := NewFilterCriteria(&origin, &exact, "", nil, 0)
	require.NoError(t, err)
	q, err := Compose(c, domain.Vocabulary)
	require.NoError(t, err)

	kept := rankByProximity(q, rows)

	var names []string
	for _, r := range kept {
		names = append(names, r.Name)
		require.NotNil(t, r.Distance)
	}
	assert.Equal(t, []string{"d1", "d4.9"}, names)
	assert.InDelta(t, 1.0, *kept[0].Distance, 1e-6)
}

func TestRankByProximityTiesAndMissingLocation(t *testing.T) {
	domain := housingDomain(t)

	tieB := shelterAt("Beacon House", 2)
	tieA := shelterAt("anchor house", 2)
	tieA.ID, tieB.ID = "b-id", "a-id"
	missing := &models.HousingResource{ResourceBase: models.ResourceBase{ID: "m", Name: "Aardvark", IsActive: true}}

	origin := models.Location{}
	c, err := NewFilterCriteria(&origin, float64Ptr(10), "", nil, 0)
	require.NoError(t, err)
	q, err := Compose(c, domain.Vocabulary)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		kept := rankByProximity(q, []*models.HousingResource{tieB, missing, tieA})
		require.Len(t, kept, 2)
		assert.Equal(t, "anchor house", kept[0].Name)
		assert.Equal(t, "Beacon House", kept[1].Name)
	}
}

func TestRankByProximityLimit(t *testing.T) {
	domain := housingDomain(t)
	origin := models.Location{}
	c, err := NewFilterCriteria(&origin, float64Ptr(50), "", nil, 2)
	require.NoError(t, err)
	q, err := Compose(c, domain.Vocabulary)
	require.NoError(t, err)

	kept := rankByProximity(q, []*models.HousingResource{shelterAt("c", 3), shelterAt("a", 1), shelterAt("b", 2)})
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].Name)
	assert.Equal(t, "b", kept[1].Name)
}
