package directory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigboard/directory-cli/internal/model"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseCSV_FullRow(t *testing.T) {
	path := writeCSV(t, `name,service_vertical,vehicle_types,areas_served,website,average_pay,year_established,source_key
Quick Delivery LLC,courier,car; van,Austin;Dallas,https://quickdelivery.com,$25 per hour,2019,grata:qd-1
`)

	companies, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)

	c := companies[0]
	assert.Equal(t, "Quick Delivery LLC", c.Name)
	assert.Equal(t, "courier", c.ServiceVertical)
	assert.Equal(t, []string{"car", "van"}, c.VehicleTypes)
	assert.Equal(t, []string{"Austin", "Dallas"}, c.AreasServed)
	assert.Equal(t, "https://quickdelivery.com", model.StrVal(c.Website))
	assert.Equal(t, "$25 per hour", model.StrVal(c.AveragePay))
	assert.Equal(t, 2019, c.YearEstablished)
	assert.Equal(t, "grata:qd-1", c.SourceKey)
}

func TestParseCSV_MinimalRowGetsGeneratedKey(t *testing.T) {
	path := writeCSV(t, `name
"Metro Movers, Inc."
`)

	companies, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)

	c := companies[0]
	assert.Equal(t, "Metro Movers, Inc.", c.Name)
	assert.Equal(t, "csv:metro-movers-inc", c.SourceKey)
	assert.Nil(t, c.Website)
	assert.Nil(t, c.VehicleTypes)
	assert.Zero(t, c.YearEstablished)
}

func TestParseCSV_SkipsRowsWithoutName(t *testing.T) {
	path := writeCSV(t, `name,website
,https://nameless.example
Real Co,https://real.example
`)

	companies, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Real Co", companies[0].Name)
}

func TestParseCSV_HeaderCaseInsensitive(t *testing.T) {
	path := writeCSV(t, `Name,Service_Vertical
Acme,courier
`)

	companies, err := ParseCSV(path)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "courier", companies[0].ServiceVertical)
}

func TestParseCSV_BadYear(t *testing.T) {
	path := writeCSV(t, `name,year_established
Acme,not-a-year
`)

	_, err := ParseCSV(path)
	assert.Error(t, err)
}

func TestParseCSV_EmptyFile(t *testing.T) {
	path := writeCSV(t, `name,website
`)

	companies, err := ParseCSV(path)
	require.NoError(t, err)
	assert.Empty(t, companies)
}

func TestParseCSV_MissingFile(t *testing.T) {
	_, err := ParseCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "metro-movers-inc", slugify("Metro Movers, Inc."))
	assert.Equal(t, "quick-delivery-llc", slugify("  Quick   Delivery LLC "))
	assert.Equal(t, "a1-b2", slugify("A1 B2"))
}
