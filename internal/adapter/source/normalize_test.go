package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   any
		want *float64
	}{
		{1_480_000.0, ptr(1_480_000)},
		{"1,480,000.00 AED", ptr(1_480_000)},
		{"$ 950,000", ptr(950_000)},
		{"USD 700000", ptr(700_000)},
		{"", nil},
		{"on request", nil},
		{nil, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePrice(tt.in), "input %v", tt.in)
	}
}

func TestParseSize(t *testing.T) {
	assert.Equal(t, 1500.0, *parseSize("1500 sqft"))
	assert.Equal(t, 812.5, *parseSize("approx 812.5 sq ft"))
	assert.Equal(t, 900.0, *parseSize(900.0))
	assert.Equal(t, 1.0, *parseSize("n/a"))
	assert.Equal(t, 1.0, *parseSize(0.0))
	assert.Equal(t, 1.0, *parseSize(nil))
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 0, parseCount("Studio"))
	assert.Equal(t, 0, parseCount("none"))
	assert.Equal(t, 0, parseCount(""))
	assert.Equal(t, 3, parseCount("3"))
	assert.Equal(t, 4, parseCount(4.0))
	assert.Equal(t, 0, parseCount(-1.0))
	assert.Equal(t, 0, parseCount("many"))
}

func TestSplitLocation(t *testing.T) {
	community, city := splitLocation("Marina Gate", "Dubai Marina, Marina Gate, Dubai")
	assert.Equal(t, "Dubai Marina", community)
	assert.Equal(t, "Dubai", city)

	community, city = splitLocation("Al Reem Island", "")
	assert.Equal(t, "Al Reem Island", community)
	assert.Equal(t, DefaultCity, city)

	community, city = splitLocation("", "")
	assert.Equal(t, DefaultCity, community)
	assert.Equal(t, DefaultCity, city)
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "12345", stringValue(12345.0))
	assert.Equal(t, "abc", stringValue(" abc "))
	assert.Equal(t, "", stringValue(nil))
	assert.Equal(t, "true", stringValue(true))
}

func ptr(f float64) *float64 { return &f }
