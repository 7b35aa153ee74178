package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/arturoeanton/go-property-search/internal/domain"
)

// CSVSource reads listings from a header-driven CSV file.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name implements port.ListingSource.
func (s *CSVSource) Name() string { return "csv" }

// LoadListings implements port.ListingSource.
func (s *CSVSource) LoadListings(ctx context.Context) ([]domain.Listing, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open listings csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

// ReadCSV parses listings from r. Unknown columns are ignored; malformed cells get defaults.
func ReadCSV(ctx context.Context, r io.Reader) ([]domain.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, errors.New("csv has no id column")
	}

	var (
		listings []domain.Listing
		line     = 1
		skipped  int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			slog.Warn("skipping malformed csv row", "line", line, "error", err)
			continue
		}
		if line%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row := csvRow{cols: cols, rec: rec}
		l := row.listing()
		if l.ID == "" {
			skipped++
			continue
		}
		listings = append(listings, l)
	}

	if skipped > 0 {
		slog.Warn("csv rows skipped", "count", skipped)
	}
	return listings, nil
}

type csvRow struct {
	cols map[string]int
	rec  []string
}

func (r csvRow) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r csvRow) float(name string) *float64 {
	s := r.get(name)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func (r csvRow) listing() domain.Listing {
	l := domain.Listing{
		ID:              r.get("id"),
		Title:           orDefault(r.get("title"), DefaultTitle),
		Price:           parsePrice(r.get("price_aed")),
		Community:       r.get("community"),
		City:            orDefault(r.get("city"), DefaultCity),
		PropertyType:    orDefault(r.get("property_type"), DefaultPropertyType),
		Bedrooms:        parseCount(r.get("bedrooms")),
		SizeSqft:        parseSize(r.get("size_sqft")),
		Status:          orDefault(r.get("status"), DefaultStatus),
		ImageURL:        r.get("image_url"),
		Featured:        strings.EqualFold(r.get("featured"), "true"),
		Latitude:        r.float("latitude"),
		Longitude:       r.float("longitude"),
		Developer:       r.get("developer"),
		Handover:        r.get("handover"),
		PaymentPlan:     r.get("payment_plan"),
		Amenities:       splitList(r.get("amenities")),
		ListingCategory: orDefault(r.get("listing_category"), DefaultListingCategory),
	}
	if b := r.get("bathrooms"); b != "" {
		n := parseCount(b)
		l.Bathrooms = &n
	}
	if label := r.get("cluster_label"); label != "" {
		l.ClusterLabel = &label
	}
	withGeohash(&l)
	return l
}
