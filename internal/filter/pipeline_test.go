package filter

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/listing"
)

func quietPipeline() *Pipeline {
	return NewPipeline(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func fixture() *listing.Snapshot {
	repo := listing.NewRepository()
	return repo.Replace([]domain.Listing{
		{ID: "dm-1", Community: "Dubai Marina", City: "Dubai", PropertyType: "Apartment", Bedrooms: 2, Price: domain.Float(1_800_000), Status: "Ready"},
		{ID: "dm-2", Community: "Marina Gate", City: "Dubai", PropertyType: "Penthouse", Bedrooms: 4, Price: domain.Float(6_000_000), Status: "Off-plan", Featured: true},
		{ID: "jvc-1", Community: "Jumeirah Village Circle", City: "Dubai", PropertyType: "Studio", Bedrooms: 0, Price: domain.Float(550_000), Status: "Ready"},
		{ID: "ar-1", Community: "Arabian Ranches", City: "Dubai", PropertyType: "Villa", Bedrooms: 4, Price: domain.Float(4_200_000), Status: "Ready", Featured: true},
		{ID: "th-1", Community: "Damac Hills", City: "Dubai", PropertyType: "Townhouse", Bedrooms: 3, Price: domain.Float(2_100_000), Status: "Off-plan"},
		{ID: "dt-1", Community: "Downtown Dubai", City: "Dubai", PropertyType: "Apartment", Bedrooms: 1, Price: nil, Status: "Ready"},
		{ID: "bm-1", Community: "Bluemarinas", City: "Ras Al Khaimah", PropertyType: "Apartment", Bedrooms: 2, Price: domain.Float(900_000), Status: "Ready"},
	}, "fixture")
}

func ids(ls []domain.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func TestMatchesBase(t *testing.T) {
	villa := domain.PropertyTypeVilla
	studio := domain.PropertyTypeStudio
	offPlan := domain.StatusOffPlan

	th := &domain.Listing{PropertyType: "Townhouse", Bedrooms: 3, Price: domain.Float(2_100_000), Status: "off-plan"}
	apt := &domain.Listing{PropertyType: "Apartment", Bedrooms: 2, Price: domain.Float(1_000_000), Status: "Ready"}
	noPrice := &domain.Listing{PropertyType: "Apartment", Bedrooms: 2}

	assert.True(t, MatchesBase(th, domain.Intent{PropertyType: &villa}))
	assert.False(t, MatchesBase(apt, domain.Intent{PropertyType: &villa}))
	assert.True(t, MatchesBase(apt, domain.Intent{PropertyType: &studio}), "non-villa intents share one bucket")
	assert.True(t, MatchesBase(th, domain.Intent{Status: &offPlan}), "status compares case-insensitively")
	assert.False(t, MatchesBase(apt, domain.Intent{MinBedrooms: domain.Int(3)}))
	assert.True(t, MatchesBase(apt, domain.Intent{MaxBudget: domain.Float(950_000)}))
	assert.False(t, MatchesBase(apt, domain.Intent{MaxBudget: domain.Float(900_000)}))
	assert.False(t, MatchesBase(noPrice, domain.Intent{MaxBudget: domain.Float(5_000_000)}))
	assert.True(t, MatchesBase(noPrice, domain.Intent{}))
}

func TestMatchesLocation(t *testing.T) {
	tests := []struct {
		name      string
		community string
		city      string
		location  string
		strict    bool
		lenient   bool
	}{
		{"exact community", "Downtown", "Dubai", "Downtown", true, true},
		{"prefix token", "Marina Gate", "Dubai", "Marina", true, true},
		{"suffix token", "Dubai Marina", "Dubai", "Marina", true, true},
		{"embedded substring", "Bluemarinas", "Ras Al Khaimah", "Marina", false, true},
		{"multi word co-occurrence", "Jumeirah Village Circle", "Dubai", "Jumeirah Village Circle", true, true},
		{"multi word in city", "Al Hamra", "Ras Al Khaimah", "Ras Al Khaimah", true, true},
		{"multi word missing second word", "Palm Deira", "Dubai", "Palm Jumeirah", false, false},
		{"no match", "Deira", "Dubai", "Marina", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &domain.Listing{Community: tt.community, City: tt.city}
			assert.Equal(t, tt.strict, MatchesLocation(l, tt.location, LocationStrict), "strict")
			assert.Equal(t, tt.lenient, MatchesLocation(l, tt.location, LocationLenient), "lenient")
		})
	}
}

func TestPipeline_StrictLocation(t *testing.T) {
	snap := fixture()
	res := quietPipeline().Filter(snap, domain.Intent{Location: domain.String("Dubai Marina")})
	assert.Equal(t, "strict", res.Stage)
	assert.Equal(t, []string{"dm-1"}, ids(res.Listings))
}

func TestPipeline_LenientWhenStrictEmpty(t *testing.T) {
	snap := fixture()
	in := domain.Intent{Location: domain.String("marinas")}

	res := quietPipeline().Filter(snap, in)
	assert.Equal(t, "lenient", res.Stage)
	assert.Equal(t, []string{"bm-1"}, ids(res.Listings))
}

func TestPipeline_LenientIsSupersetOfStrict(t *testing.T) {
	snap := fixture()
	in := domain.Intent{Location: domain.String("Marina")}

	strict := LocationStrategy{Mode: LocationStrict}.Filter(snap, in)
	lenient := LocationStrategy{Mode: LocationLenient}.Filter(snap, in)

	assert.ElementsMatch(t, []string{"dm-1", "dm-2"}, ids(strict))
	assert.Subset(t, ids(lenient), ids(strict))
	assert.Contains(t, ids(lenient), "bm-1")
}

func TestPipeline_LocationWithNoMatchIsEmpty(t *testing.T) {
	snap := fixture()
	res := quietPipeline().Filter(snap, domain.Intent{Location: domain.String("Fujairah")})
	assert.Empty(t, res.Listings)
	assert.Empty(t, res.Stage)
}

func TestPipeline_FeaturedFallbackWithoutLocation(t *testing.T) {
	snap := fixture()
	res := quietPipeline().Filter(snap, domain.Intent{MinBedrooms: domain.Int(9)})
	assert.Equal(t, "featured", res.Stage)
	assert.Equal(t, []string{"dm-2", "ar-1"}, ids(res.Listings))
}

func TestPipeline_CombinedConstraints(t *testing.T) {
	snap := fixture()
	villa := domain.PropertyTypeVilla
	offPlan := domain.StatusOffPlan

	res := quietPipeline().Filter(snap, domain.Intent{
		PropertyType: &villa,
		Status:       &offPlan,
		MaxBudget:    domain.Float(2_000_000),
	})
	require.Equal(t, "strict", res.Stage)
	assert.Equal(t, []string{"th-1"}, ids(res.Listings), "2.1M is inside the 10% tolerance")
}

func TestPipeline_EmptySnapshot(t *testing.T) {
	res := quietPipeline().Filter(listing.NewRepository().Snapshot(), domain.Intent{})
	assert.Empty(t, res.Listings)
}
