// Package gigs fetches live music listings from the Live Music Locator API
package gigs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/randytsao24/gigsahead/internal/cache"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/reachability"
)

const (
	serviceName  = "gigs"
	queryPath    = "/gigs/query"
	dateLayout   = "2006-01-02"
	maxBodyBytes = 16 << 20
)

// Client queries gigs by location and date range
type Client struct {
	baseURL string
	client  *http.Client
	cache   *cache.Memory[[]models.Event]
	log     logging.Logger
}

// NewClient creates a gigs client. Results are kept for cacheTTL; zero
// disables caching.
func NewClient(baseURL string, timeout, cacheTTL time.Duration, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
	if cacheTTL > 0 {
		c.cache = cache.NewMemory[[]models.Event](cacheTTL)
	}
	return c
}

// Close releases the result cache
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// GigsForDateRange returns gigs in location between from and to inclusive
func (c *Client) GigsForDateRange(ctx context.Context, location string, from, to time.Time) ([]models.Event, error) {
	params := url.Values{}
	params.Set("location", location)
	params.Set("date_from", from.Format(dateLayout))
	params.Set("date_to", to.Format(dateLayout))

	key := params.Encode()
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+queryPath+"?"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("building gigs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: "query", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: "query", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{
			Service:    serviceName,
			Op:         "query",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gigs API returned status %d", resp.StatusCode),
		}
	}

	var raw []apiGig
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: "query", Err: fmt.Errorf("parsing response: %w", err)}
	}

	events := make([]models.Event, 0, len(raw))
	missing := 0
	for _, g := range raw {
		ev := g.toModel()
		if !ev.Venue.HasLocation() {
			missing++
		}
		events = append(events, ev)
	}
	c.log.Debug("fetched gigs", "location", location, "count", len(events), "without_coordinates", missing)

	if c.cache != nil {
		c.cache.Set(key, events)
	}
	return events, nil
}

// SortByStart orders events by date then start time, missing start times
// counting as the default start. The sort is stable.
func SortByStart(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return StartKey(events[i]) < StartKey(events[j])
	})
}

// StartKey is an event's start time as zero-padded HH:MM:SS, the default
// start when missing, for ordering within a day. Unreadable start times
// sort after every readable one.
func StartKey(ev models.Event) string {
	t, err := reachability.ParseStartTime(ev.StartTime)
	if err != nil {
		return "~" + strings.TrimSpace(ev.StartTime)
	}
	return t.Format("15:04:05")
}

type apiGig struct {
	ID              flexString `json:"id"`
	Name            string     `json:"name"`
	Date            string     `json:"date"`
	StartTime       *string    `json:"start_time"`
	GenreTags       []string   `json:"genre_tags"`
	InformationTags []string   `json:"information_tags"`
	Venue           struct {
		ID        flexString `json:"id"`
		Name      string     `json:"name"`
		Address   string     `json:"address"`
		Latitude  flexFloat  `json:"latitude"`
		Longitude flexFloat  `json:"longitude"`
	} `json:"venue"`
}

func (g apiGig) toModel() models.Event {
	ev := models.Event{
		ID:              string(g.ID),
		Name:            g.Name,
		Date:            g.Date,
		GenreTags:       g.GenreTags,
		InformationTags: g.InformationTags,
		Venue: models.Venue{
			Name:      g.Venue.Name,
			Address:   g.Venue.Address,
			Latitude:  g.Venue.Latitude.ptr(),
			Longitude: g.Venue.Longitude.ptr(),
		},
	}
	if g.StartTime != nil {
		ev.StartTime = *g.StartTime
	}
	if id, err := strconv.Atoi(string(g.Venue.ID)); err == nil {
		ev.Venue.ID = id
	}
	return ev
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number, numeric string, or null
type flexFloat struct {
	value float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			// unparseable coordinates mean the venue cannot be placed
			*f = flexFloat{}
			return nil
		}
		*f = flexFloat{value: v, valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat{value: v, valid: true}
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}
