package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "\ufeffid,title,project_name,developer,community,city,property_type,bedrooms,bathrooms,size_sqft,price_aed,payment_plan,handover,status,amenities,latitude,longitude,image_url,featured\n" +
	"p1,Marina Vista,Vista,Emaar,Dubai Marina,Dubai,Apartment,2,3,1250,\"2,400,000\",60/40,Q4 2026,Off-plan,\"Pool, Gym, Parking\",25.0805,55.1403,https://img/1.jpg,True\n" +
	"p2,,,,Jumeirah Village Circle,,Studio,studio,,450,650000,,,,,,,,False\n" +
	",No id,,,,,,,,,,,,,,,,,\n"

func TestReadCSV_ParsesRows(t *testing.T) {
	listings, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, listings, 2)

	p1 := listings[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, "Marina Vista", p1.Title)
	require.NotNil(t, p1.Price)
	assert.Equal(t, 2_400_000.0, *p1.Price)
	assert.Equal(t, 2, p1.Bedrooms)
	require.NotNil(t, p1.Bathrooms)
	assert.Equal(t, 3, *p1.Bathrooms)
	assert.Equal(t, 1250.0, *p1.SizeSqft)
	assert.Equal(t, "Off-plan", p1.Status)
	assert.True(t, p1.Featured)
	assert.Equal(t, []string{"Pool", "Gym", "Parking"}, p1.Amenities)
	assert.Equal(t, "Emaar", p1.Developer)
	assert.Len(t, p1.Geohash, geohashPrecision)

	p2 := listings[1]
	assert.Equal(t, DefaultTitle, p2.Title)
	assert.Equal(t, DefaultCity, p2.City)
	assert.Equal(t, "Studio", p2.PropertyType)
	assert.Equal(t, 0, p2.Bedrooms)
	assert.Nil(t, p2.Bathrooms)
	assert.Equal(t, DefaultStatus, p2.Status)
	assert.False(t, p2.Featured)
	assert.Empty(t, p2.Geohash)
}

func TestReadCSV_RequiresIDColumn(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("title,price_aed\nx,1\n"))
	assert.Error(t, err)
}

func TestCSVSource_LoadListings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := NewCSVSource(path)
	assert.Equal(t, "csv", src.Name())
	listings, err := src.LoadListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).LoadListings(context.Background())
	assert.Error(t, err)
}
