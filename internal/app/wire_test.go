package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-property-search/internal/adapter/source"
	"github.com/arturoeanton/go-property-search/internal/service"
	"github.com/arturoeanton/go-property-search/pkg/config"
)

const csvFixture = `id,title,community,city,property_type,bedrooms,size_sqft,price_aed,status,featured
a1,Marina flat,Dubai Marina,Dubai,Apartment,2,1100,1800000,Ready,True
a2,Hills villa,Dubai Hills,Dubai,Villa,4,3800,6500000,Off-plan,False
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "properties.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvFixture), 0o644))
	cfg := config.Defaults()
	cfg.DataCSVPath = path
	return cfg
}

func TestNewCore_LoadsCSV(t *testing.T) {
	core, err := NewCore(testConfig(t))
	require.NoError(t, err)
	defer core.Close()

	assert.Equal(t, "none", core.Narrator)
	n, err := core.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	result, err := core.Search.Search(context.Background(), searchRequest("villa in dubai hills"))
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "a2", result.Recommendations[0].ID)
	require.NotNil(t, result.Recommendations[0].ClusterLabel)
}

func TestNewCore_RealtimeWithoutKeyFallsBackToCSV(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseRealtimeData = true
	cfg.FallbackToCSV = true

	core, err := NewCore(cfg)
	require.NoError(t, err)
	defer core.Close()

	n, err := core.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "csv", core.Recommender.Stats().Source)
}

func TestListingSource_Chain(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseRealtimeData = true
	cfg.RapidAPIKey = "key"

	c := &Core{}
	defer c.Close()
	src, err := c.listingSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &source.FallbackSource{}, src)
	assert.Equal(t, "propertyfinder+csv", src.Name())

	cfg.FallbackToCSV = false
	c2 := &Core{}
	defer c2.Close()
	src, err = c2.listingSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "propertyfinder", src.Name())

	cfg.RapidAPIKey = ""
	c3 := &Core{}
	defer c3.Close()
	_, err = c3.listingSource(cfg)
	assert.Error(t, err)
}

func TestNewNarrator(t *testing.T) {
	cfg := config.Defaults()

	n, err := NewNarrator(cfg)
	require.NoError(t, err)
	assert.Nil(t, n)

	cfg.Narrator = "ollama"
	n, err = NewNarrator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, n)

	cfg.Narrator = "openai"
	cfg.OpenAIModel = ""
	_, err = NewNarrator(cfg)
	assert.Error(t, err)
}

func searchRequest(message string) service.SearchRequest {
	return service.SearchRequest{Message: message, Limit: 10}
}
