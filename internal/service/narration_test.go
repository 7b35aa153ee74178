package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

type stubAI struct {
	reply   string
	err     error
	system  string
	context []string
}

func (s *stubAI) ModelName() string { return "stub" }

func (s *stubAI) Chat(_ context.Context, systemPrompt, _ string, contextChunks []string) (string, error) {
	s.system, s.context = systemPrompt, contextChunks
	return s.reply, s.err
}

func TestFallbackNarration(t *testing.T) {
	villa := domain.PropertyTypeVilla
	tests := []struct {
		name  string
		count int
		in    domain.Intent
		want  string
	}{
		{
			name:  "many results with criteria",
			count: 20,
			in:    domain.Intent{MinBedrooms: domain.Int(2), Location: domain.String("Dubai Marina"), MaxBudget: domain.Float(2_000_000)},
			want:  "🎉 Excellent! I found 20 amazing properties 2 bedrooms, in Dubai Marina, under 2.0M AED. Use filters or ask me to refine further!",
		},
		{
			name:  "ten results",
			count: 12,
			in:    domain.Intent{PropertyType: &villa},
			want:  "✨ Great news! I found 12 great properties villa. Use filters or ask me to refine further!",
		},
		{
			name:  "five results",
			count: 5,
			in:    domain.Intent{MinBedrooms: domain.Int(0)},
			want:  "🏠 Perfect! I found 5 properties studio. Let me know if you'd like to see more options or adjust your criteria.",
		},
		{
			name:  "single result under a million",
			count: 1,
			in:    domain.Intent{MinBedrooms: domain.Int(1), MaxBudget: domain.Float(750_000)},
			want:  "🎯 I found 1 property 1 bedroom, under 750,000 AED. Let me know if you'd like to see more options or adjust your criteria.",
		},
		{
			name:  "no criteria",
			count: 3,
			want:  "🎯 I found 3 properties Let me know if you'd like to see more options or adjust your criteria.",
		},
		{
			name:  "nothing found in location",
			count: 0,
			in:    domain.Intent{Location: domain.String("Fujairah"), PropertyType: &villa, MinBedrooms: domain.Int(3), MaxBudget: domain.Float(1_500_000)},
			want:  "I couldn't find any properties in Fujairah villa 3 bedrooms under 1.5M AED. Try adjusting your search criteria or check a different location.",
		},
		{
			name:  "nothing found anywhere",
			count: 0,
			want:  "I'm currently searching our latest property database. Please try again in a moment, or feel free to refine your search criteria!",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackNarration(tt.count, tt.in))
		})
	}
}

func TestAINarrator_AcceptsGoodReply(t *testing.T) {
	reply := "I found **3 apartments** in **Dubai Marina** within your budget. The first one offers sea views and a spacious layout, perfect for families."
	ai := &stubAI{reply: "  " + reply + "\n"}
	listings := []domain.ScoredListing{
		{Listing: domain.Listing{Title: "Marina Heights", Community: "Dubai Marina", City: "Dubai", Bedrooms: 2, Price: domain.Float(2_400_000), Featured: true}},
		{Listing: domain.Listing{Title: "Studio Loft", Community: "JVC", City: "Dubai", Bedrooms: 0, Price: domain.Float(650_000)}},
	}

	text, err := NewAINarrator(ai, "Test Realty").Narrate(context.Background(), "2 bed in marina", listings, domain.Intent{Location: domain.String("Dubai Marina"), MaxBudget: domain.Float(2_500_000)})
	require.NoError(t, err)
	assert.Equal(t, reply, text)

	assert.Contains(t, ai.system, "Test Realty")
	assert.Contains(t, ai.system, "Location: Dubai Marina, Budget: Under 2.5M AED")
	require.Len(t, ai.context, 2)
	assert.Equal(t, "1. Marina Heights - Dubai Marina, Dubai - 2 Bed - AED 2.4M (EXCLUSIVE)", ai.context[0])
	assert.Equal(t, "2. Studio Loft - JVC, Dubai - Studio - AED 650,000", ai.context[1])
}

func TestAINarrator_RejectsPoorReplies(t *testing.T) {
	long := strings.Repeat("word ", 20)
	tests := []struct {
		name  string
		reply string
	}{
		{"too short", "Here you go."},
		{"truncated", long + "and more..."},
		{"too few words", strings.Repeat("x", 70) + " y z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAINarrator(&stubAI{reply: tt.reply}, "Test").Narrate(context.Background(), "q", nil, domain.Intent{})
			assert.ErrorIs(t, err, port.ErrNarrationRejected)
		})
	}
}

func TestAINarrator_ProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewAINarrator(&stubAI{err: boom}, "Test").Narrate(context.Background(), "q", nil, domain.Intent{})
	assert.ErrorIs(t, err, boom)
}

func TestListingContext_CapsAtFive(t *testing.T) {
	listings := make([]domain.ScoredListing, 8)
	assert.Len(t, listingContext(listings), 5)
	assert.Equal(t, []string{"No properties found matching the criteria."}, listingContext(nil))
}
