package services

import (
	"testing"

	"support_directory_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportResources(t *testing.T) {
	domain := housingDomain(t)

	near := newShelter("Beacon House", 53.8, -1.55)
	near.Postcode = "LS1 1UR"
	near.IsVerified = true
	near.Distance = float64Ptr(1.234)
	near.Attributes = map[string][]string{"services": {"meals", "showers"}}

	far := newShelter("Far Hostel", 54.0, -1.6)
	far.HousingType = "hostel"

	buf, err := ExportResources(domain, []models.Resource{near, far})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Housing"}, f.GetSheetList())

	rows, err := f.GetRows("Housing")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, []string{"Name", "Address", "Postcode", "Phone", "Website", "Distance", "Verified"}, header[:7])
	assert.Len(t, header, 7+len(domain.Fields)+len(domain.Categories))

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	cell := func(row []string, name string) string {
		i := col(name)
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	assert.Equal(t, "Beacon House", cell(rows[1], "Name"))
	assert.Equal(t, "LS1 1UR", cell(rows[1], "Postcode"))
	assert.Equal(t, "1.23", cell(rows[1], "Distance"))
	assert.Equal(t, "night_shelter", cell(rows[1], "housingType"))
	assert.Equal(t, "meals, showers", cell(rows[1], "services"))

	assert.Equal(t, "Far Hostel", cell(rows[2], "Name"))
	assert.Equal(t, "", cell(rows[2], "Distance"))
	assert.Equal(t, "hostel", cell(rows[2], "housingType"))
	assert.Equal(t, "", cell(rows[2], "services"))
}

func TestExportResourcesEmpty(t *testing.T) {
	buf, err := ExportResources(housingDomain(t), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Housing")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
