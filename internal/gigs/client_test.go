package gigs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randytsao24/gigsahead/internal/models"
)

const sampleGigs = `[
  {"id":"a1","name":"Late Show","date":"2024-05-01","start_time":"21:30:00",
   "venue":{"id":11,"name":"The Tote","latitude":-37.7985,"longitude":144.9852},
   "genre_tags":["punk"]},
  {"id":42,"name":"Early Show","date":"2024-05-01","start_time":null,
   "venue":{"id":"12","name":"Corner Hotel","latitude":"-37.8245","longitude":"145.0005"}},
  {"id":"c3","name":"Secret Gig","date":"2024-05-01",
   "venue":{"name":"Somewhere","latitude":null,"longitude":144.9}}
]`

func TestGigsForDateRange(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, queryPath, r.URL.Path)
		gotQuery = r.URL.Query()
		fmt.Fprint(w, sampleGigs)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0, nil)
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	events, err := c.GigsForDateRange(context.Background(), "melbourne", day, day)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "melbourne", gotQuery.Get("location"))
	assert.Equal(t, "2024-05-01", gotQuery.Get("date_from"))
	assert.Equal(t, "2024-05-01", gotQuery.Get("date_to"))

	assert.Equal(t, "a1", events[0].ID)
	assert.Equal(t, "21:30:00", events[0].StartTime)
	assert.True(t, events[0].Venue.HasLocation())
	assert.Equal(t, []string{"punk"}, events[0].GenreTags)

	assert.Equal(t, "42", events[1].ID)
	assert.Equal(t, "", events[1].StartTime)
	require.True(t, events[1].Venue.HasLocation())
	assert.InDelta(t, -37.8245, *events[1].Venue.Latitude, 1e-9)
	assert.Equal(t, 12, events[1].Venue.ID)

	assert.False(t, events[2].Venue.HasLocation())
}

func TestGigsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0, nil)
	_, err := c.GigsForDateRange(context.Background(), "melbourne", time.Now(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestGigsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"not a list"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0, nil)
	_, err := c.GigsForDateRange(context.Background(), "melbourne", time.Now(), time.Now())
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestGigsCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, time.Minute, nil)
	defer c.Close()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		events, err := c.GigsForDateRange(context.Background(), "melbourne", day, day)
		require.NoError(t, err)
		assert.Empty(t, events)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSortByStart(t *testing.T) {
	events := []models.Event{
		{ID: "late", Date: "2024-05-01", StartTime: "21:00:00"},
		{ID: "tomorrow", Date: "2024-05-02", StartTime: "10:00:00"},
		{ID: "default", Date: "2024-05-01"},
		{ID: "early", Date: "2024-05-01", StartTime: "18:00:00"},
		{ID: "default2", Date: "2024-05-01"},
	}
	SortByStart(events)

	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"early", "default", "default2", "late", "tomorrow"}, ids)
}

func TestSortByStartPadsSingleDigitHours(t *testing.T) {
	events := []models.Event{
		{ID: "evening", Date: "2024-05-01", StartTime: "19:00:00"},
		{ID: "unreadable", Date: "2024-05-01", StartTime: "doors late"},
		{ID: "morning", Date: "2024-05-01", StartTime: "7:30"},
	}
	SortByStart(events)

	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"morning", "evening", "unreadable"}, ids)
	assert.Equal(t, "07:30:00", StartKey(models.Event{StartTime: "7:30"}))
	assert.Equal(t, "19:00:00", StartKey(models.Event{}))
}
