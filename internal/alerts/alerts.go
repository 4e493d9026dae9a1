// Package alerts reads GTFS-Realtime service alert feeds per transport mode
package alerts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/gigsahead/internal/cache"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
)

const (
	serviceName  = "gtfsr"
	apiKeyHeader = "Ocp-Apim-Subscription-Key"

	// maxFeedBytes caps how much of a feed is read before giving up
	maxFeedBytes = 16 << 20
)

// Alert is an active disruption notice
type Alert struct {
	ID          string           `json:"id"`
	RouteType   models.RouteType `json:"route_type"`
	Routes      []string         `json:"routes"`
	Stops       []string         `json:"stops,omitempty"`
	Header      string           `json:"header"`
	Description string           `json:"description,omitempty"`
	Cause       string           `json:"cause,omitempty"`
	Effect      string           `json:"effect,omitempty"`
	URL         string           `json:"url,omitempty"`
	ActiveUntil *time.Time       `json:"active_until,omitempty"`
}

// Service fetches and caches alert feeds. Feeds are keyed by mode.
type Service struct {
	feeds  map[models.RouteType]string
	apiKey string
	client *http.Client
	cache  *cache.Memory[[]Alert]
	log    logging.Logger
	now    func() time.Time

	maxBody int64
}

// NewService creates an alert service over the given feed URLs
func NewService(feeds map[models.RouteType]string, apiKey string, timeout, cacheTTL time.Duration, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		feeds:  feeds,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		cache:  cache.NewMemory[[]Alert](cacheTTL),
		log:    log,
		now:    time.Now,

		maxBody: maxFeedBytes,
	}
}

// Close stops the cache sweep
func (s *Service) Close() {
	s.cache.Close()
}

// HasFeed reports whether alerts are configured for a mode
func (s *Service) HasFeed(rt models.RouteType) bool {
	_, ok := s.feeds[rt]
	return ok
}

// Alerts returns active alerts for a mode, filtered to routes when given.
// A mode without a configured feed yields no alerts; callers that need to
// tell the two apart check HasFeed.
func (s *Service) Alerts(ctx context.Context, rt models.RouteType, routes []string) ([]Alert, error) {
	all, err := s.fetch(ctx, rt)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(routes))
	for _, r := range routes {
		wanted[r] = true
	}

	filtered := make([]Alert, 0)
	for _, a := range all {
		for _, r := range a.Routes {
			if wanted[r] {
				filtered = append(filtered, a)
				break
			}
		}
	}
	return filtered, nil
}

func (s *Service) fetch(ctx context.Context, rt models.RouteType) ([]Alert, error) {
	feedURL, ok := s.feeds[rt]
	if !ok {
		return []Alert{}, nil
	}

	key := strconv.Itoa(int(rt))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building alerts request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set(apiKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: "alerts " + rt.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{
			Service:    serviceName,
			Op:         "alerts " + rt.String(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("alerts feed returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, &models.UpstreamError{Service: serviceName, Op: "alerts " + rt.String(), Err: err}
	}
	if int64(len(body)) > s.maxBody {
		return nil, &models.UpstreamError{
			Service: serviceName,
			Op:      "alerts " + rt.String(),
			Err:     fmt.Errorf("alerts feed larger than %d bytes", s.maxBody),
		}
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, &models.UpstreamError{
			Service: serviceName,
			Op:      "alerts " + rt.String(),
			Err:     fmt.Errorf("parsing alerts protobuf: %w", err),
		}
	}

	alerts := s.activeAlerts(feed, rt)
	s.log.Debug("fetched service alerts", "route_type", rt.String(), "entities", len(feed.GetEntity()), "active", len(alerts))
	s.cache.Set(key, alerts)
	return alerts, nil
}

func (s *Service) activeAlerts(feed *gtfs.FeedMessage, rt models.RouteType) []Alert {
	alerts := make([]Alert, 0)
	now := s.now().Unix()

	for _, entity := range feed.GetEntity() {
		if entity.GetIsDeleted() {
			continue
		}
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		active, until := activeAt(alert.GetActivePeriod(), now)
		if !active {
			continue
		}

		header := translatedText(alert.GetHeaderText())
		if header == "" {
			continue
		}

		routes, stops := informed(alert.GetInformedEntity())
		alerts = append(alerts, Alert{
			ID:          entity.GetId(),
			RouteType:   rt,
			Routes:      routes,
			Stops:       stops,
			Header:      header,
			Description: translatedText(alert.GetDescriptionText()),
			Cause:       alert.GetCause().String(),
			Effect:      alert.GetEffect().String(),
			URL:         translatedText(alert.GetUrl()),
			ActiveUntil: until,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
	return alerts
}

// activeAt reports whether any period covers now. No periods means always
// active. until is the end of the covering period, if bounded.
func activeAt(periods []*gtfs.TimeRange, now int64) (bool, *time.Time) {
	if len(periods) == 0 {
		return true, nil
	}
	for _, p := range periods {
		start := int64(p.GetStart())
		end := int64(p.GetEnd())
		if now >= start && (end == 0 || now < end) {
			if end == 0 {
				return true, nil
			}
			t := time.Unix(end, 0).UTC()
			return true, &t
		}
	}
	return false, nil
}

func informed(entities []*gtfs.EntitySelector) (routes, stops []string) {
	seenRoute := make(map[string]bool)
	seenStop := make(map[string]bool)
	for _, ie := range entities {
		if id := ie.GetRouteId(); id != "" && !seenRoute[id] {
			seenRoute[id] = true
			routes = append(routes, id)
		}
		if id := ie.GetStopId(); id != "" && !seenStop[id] {
			seenStop[id] = true
			stops = append(stops, id)
		}
	}
	return routes, stops
}

func translatedText(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if t.GetLanguage() == "en" || t.GetLanguage() == "" {
			return t.GetText()
		}
	}
	if len(ts.GetTranslation()) > 0 {
		return ts.GetTranslation()[0].GetText()
	}
	return ""
}
