package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

var (
	errRateLimited = errors.New("rate limited")
	// errNoPage marks an offset past the last page.
	errNoPage = errors.New("page not found")
)

// RemoteConfig configures the PropertyFinder (RapidAPI) source.
type RemoteConfig struct {
	BaseURL    string // defaults to https://{Host}
	Host       string
	Endpoint   string
	APIKey     string
	PageSize   int
	Pages      int
	Workers    int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// RemoteSource fetches listings page by page from the PropertyFinder API.
type RemoteSource struct {
	cfg       RemoteConfig
	client    *http.Client
	cache     *Cache
	validator *RecordValidator
}

// NewRemoteSource creates a remote source. cache may be nil.
func NewRemoteSource(cfg RemoteConfig, cache *Cache) (*RemoteSource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote source: %w: RAPIDAPI_KEY is not set", port.ErrSourceUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/properties"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	validator, err := NewRecordValidator()
	if err != nil {
		return nil, err
	}
	return &RemoteSource{cfg: cfg, client: client, cache: cache, validator: validator}, nil
}

// Name implements port.ListingSource.
func (s *RemoteSource) Name() string { return "propertyfinder" }

type pageResult struct {
	offset   int
	listings []domain.Listing
	err      error
}

// LoadListings fetches all configured pages concurrently. It fails only when every page fails.
func (s *RemoteSource) LoadListings(ctx context.Context) ([]domain.Listing, error) {
	pool, err := ants.NewPool(min(s.cfg.Workers, s.cfg.Pages))
	if err != nil {
		return nil, fmt.Errorf("create fetch pool: %w", err)
	}
	defer pool.Release()

	results := make([]pageResult, s.cfg.Pages)
	var wg sync.WaitGroup
	for i := range results {
		offset := i * s.cfg.PageSize
		results[i].offset = offset
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i].listings, results[i].err = s.fetchPage(ctx, offset)
		}); err != nil {
			wg.Done()
			results[i].err = err
		}
	}
	wg.Wait()

	var (
		listings []domain.Listing
		errs     []error
	)
	for _, r := range results {
		if r.err != nil {
			slog.Warn("listing page failed", "source", s.Name(), "offset", r.offset, "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		listings = append(listings, r.listings...)
	}
	if len(errs) == len(results) {
		return nil, fmt.Errorf("%w: %w", port.ErrSourceUnavailable, errors.Join(errs...))
	}
	slog.Info("fetched listings", "source", s.Name(), "pages", len(results)-len(errs), "listings", len(listings))
	return listings, nil
}

func (s *RemoteSource) cacheKey(offset int) string {
	return fmt.Sprintf("pf:%s:%d:%d", s.cfg.Endpoint, offset, s.cfg.PageSize)
}

// fetchPage returns one normalized page, serving fresh cache hits without a request
// and stale ones when the API refuses.
func (s *RemoteSource) fetchPage(ctx context.Context, offset int) ([]domain.Listing, error) {
	key := s.cacheKey(offset)
	var stale []byte
	if s.cache != nil {
		if body, fresh, ok := s.cache.Get(key); ok {
			if fresh {
				slog.Debug("listing page served from cache", "offset", offset)
				return s.decodePage(body)
			}
			stale = body
		}
	}

	body, err := s.request(ctx, offset)
	if errors.Is(err, errNoPage) {
		slog.Info("listing page not found", "offset", offset)
		return nil, nil
	}
	if err != nil {
		if stale != nil {
			slog.Warn("using stale cached page", "offset", offset, "error", err)
			return s.decodePage(stale)
		}
		return nil, err
	}

	listings, err := s.decodePage(body)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(key, body); err != nil {
			slog.Warn("listing cache write failed", "offset", offset, "error", err)
		}
	}
	return listings, nil
}

func (s *RemoteSource) request(ctx context.Context, offset int) ([]byte, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	endpoint := s.cfg.BaseURL + s.cfg.Endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", s.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", s.cfg.Host)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("propertyfinder request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, errNoPage
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("propertyfinder offset %d: %w", offset, errRateLimited)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("propertyfinder: invalid RAPIDAPI_KEY (%d)", resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("propertyfinder API error (%d): %s", resp.StatusCode, string(body))
	}
}

// decodePage accepts {"data": [...]} or a bare array, skipping records that fail validation.
func (s *RemoteSource) decodePage(body []byte) ([]domain.Listing, error) {
	var records []json.RawMessage
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		records = envelope.Data
	} else if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode propertyfinder page: %w", err)
	}

	listings := make([]domain.Listing, 0, len(records))
	invalid := 0
	for _, raw := range records {
		if err := s.validator.Validate(raw); err != nil {
			invalid++
			slog.Debug("skipping invalid record", "error", err)
			continue
		}
		var rec pfRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			invalid++
			continue
		}
		listings = append(listings, rec.listing())
	}
	if invalid > 0 {
		slog.Warn("propertyfinder records skipped", "invalid", invalid, "kept", len(listings))
	}
	return listings, nil
}

type pfCoordinates struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type pfLocation struct {
	Name        string         `json:"name"`
	FullName    string         `json:"full_name"`
	Coordinates *pfCoordinates `json:"coordinates"`
}

type pfImage struct {
	Medium string `json:"medium_image_url"`
	Small  string `json:"small_image_url"`
}

type pfRecord struct {
	PropertyID       any               `json:"property_id"`
	Index            any               `json:"index"`
	Title            string            `json:"title"`
	Price            any               `json:"price"`
	Bedrooms         any               `json:"bedrooms"`
	Bathrooms        any               `json:"bathrooms"`
	Size             any               `json:"size"`
	Location         *pfLocation       `json:"location"`
	Images           []json.RawMessage `json:"images"`
	IsFeatured       *bool             `json:"is_featured"`
	IsPremium        *bool             `json:"is_premium"`
	CompletionStatus string            `json:"completion_status"`
	PropertyType     string            `json:"property_type"`
	ListingDate      string            `json:"listing_date"`
	Amenities        any               `json:"amenities"`
	ListingCategory  string            `json:"listing_category"`
}

func (r pfRecord) listing() domain.Listing {
	id := stringValue(r.PropertyID)
	if id == "" {
		id = stringValue(r.Index)
	}

	var loc pfLocation
	if r.Location != nil {
		loc = *r.Location
	}
	community, city := splitLocation(loc.Name, loc.FullName)
	bathrooms := parseCount(r.Bathrooms)

	l := domain.Listing{
		ID:              id,
		Title:           orDefault(r.Title, DefaultTitle),
		Price:           parsePrice(r.Price),
		Community:       community,
		City:            city,
		PropertyType:    orDefault(r.PropertyType, DefaultPropertyType),
		Bedrooms:        parseCount(r.Bedrooms),
		Bathrooms:       &bathrooms,
		SizeSqft:        parseSize(r.Size),
		Status:          orDefault(r.CompletionStatus, DefaultStatus),
		ImageURL:        firstImage(r.Images),
		Featured:        (r.IsFeatured != nil && *r.IsFeatured) || (r.IsPremium != nil && *r.IsPremium),
		Handover:        r.ListingDate,
		Amenities:       amenities(r.Amenities),
		ListingCategory: orDefault(r.ListingCategory, DefaultListingCategory),
	}
	if c := loc.Coordinates; c != nil {
		l.Latitude = firstNonNil(c.Lat, c.Latitude)
		l.Longitude = firstNonNil(c.Lon, c.Longitude)
	}
	withGeohash(&l)
	return l
}

func firstImage(images []json.RawMessage) string {
	if len(images) == 0 {
		return ""
	}
	var img pfImage
	if err := json.Unmarshal(images[0], &img); err != nil {
		return ""
	}
	if img.Medium != "" {
		return img.Medium
	}
	return img.Small
}

func amenities(v any) []string {
	switch a := v.(type) {
	case string:
		return splitList(a)
	case []any:
		out := make([]string, 0, len(a))
		for _, item := range a {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
