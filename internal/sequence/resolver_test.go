package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randytsao24/gigsahead/internal/models"
)

func ids(ordered []models.OrderedStop) []int {
	out := make([]int, len(ordered))
	for i, s := range ordered {
		out[i] = s.ID
	}
	return out
}

func TestResolveRouteSuppliedSequenceIsAuthoritative(t *testing.T) {
	stops := []models.Stop{
		{ID: 1001, Name: "Swanston St #12", RouteSuppliedSequence: 3},
		{ID: 1002, Name: "Collins St #1", RouteSuppliedSequence: 1},
		{ID: 1003, Name: "Bourke St #40", RouteSuppliedSequence: 2},
		{ID: 1004, Name: "Flinders St", RouteSuppliedSequence: 10},
	}

	ordered := Resolve(stops, models.RouteTypeTram)

	assert.Equal(t, []int{1002, 1003, 1001, 1004}, ids(ordered))
	for _, s := range ordered {
		assert.Equal(t, s.RouteSuppliedSequence, s.ResolvedSequence)
		assert.Equal(t, models.SequenceFromRoute, s.SequenceSource)
	}
}

func TestResolveTierPriority(t *testing.T) {
	tests := []struct {
		name   string
		stop   models.Stop
		hint   models.RouteType
		seq    int
		source models.SequenceSource
	}{
		{"route sequence wins over name", models.Stop{ID: 17, Name: "Stop #5", RouteSuppliedSequence: 8}, models.RouteTypeTram, 8, models.SequenceFromRoute},
		{"zero route sequence falls through", models.Stop{ID: 17, Name: "Stop #5"}, models.RouteTypeTram, 5, models.SequenceFromNameHash},
		{"negative route sequence falls through", models.Stop{ID: 17, Name: "Stop #5", RouteSuppliedSequence: -2}, models.RouteTypeTram, 5, models.SequenceFromNameHash},
		{"hash wins over docklands", models.Stop{ID: 17, Name: "Harbour Esp/D11 #47"}, models.RouteTypeTram, 47, models.SequenceFromNameHash},
		{"docklands numbering", models.Stop{ID: 17, Name: "Docklands Dr D11"}, models.RouteTypeTram, 111, models.SequenceFromDocklands},
		{"stop id last two digits", models.Stop{ID: 19342, Name: "Lygon St"}, models.RouteTypeTram, 42, models.SequenceFromStopID},
		{"single digit stop id", models.Stop{ID: 7, Name: "Lygon St"}, models.RouteTypeTram, 7, models.SequenceFromStopID},
		{"unknown hint uses names", models.Stop{ID: 17, Name: "Stop #5"}, models.RouteTypeUnknown, 5, models.SequenceFromNameHash},
		{"train skips name tiers", models.Stop{ID: 1071, Name: "Platform #5"}, models.RouteTypeTrain, 71, models.SequenceFromStopID},
		{"nothing resolvable", models.Stop{ID: 0, Name: "Somewhere"}, models.RouteTypeBus, Unresolved, models.SequenceNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ordered := Resolve([]models.Stop{tc.stop}, tc.hint)
			require.Len(t, ordered, 1)
			assert.Equal(t, tc.seq, ordered[0].ResolvedSequence)
			assert.Equal(t, tc.source, ordered[0].SequenceSource)
		})
	}
}

func TestResolveUnresolvedStopsKeepInputOrderAtEnd(t *testing.T) {
	stops := []models.Stop{
		{ID: -3, Name: "c"},
		{ID: 0, Name: "a"},
		{ID: 2105, Name: "Elizabeth St #2", RouteSuppliedSequence: 0},
		{ID: -1, Name: "b"},
	}

	ordered := Resolve(stops, models.RouteTypeTram)

	assert.Equal(t, []int{2105, -3, 0, -1}, ids(ordered))
	assert.Equal(t, Unresolved, ordered[3].ResolvedSequence)
}

func TestResolveStableOnTies(t *testing.T) {
	stops := []models.Stop{
		{ID: 305, Name: "x"},
		{ID: 105, Name: "y"},
		{ID: 205, Name: "z"},
	}

	ordered := Resolve(stops, models.RouteTypeBus)

	assert.Equal(t, []int{305, 105, 205}, ids(ordered))
}

func TestResolveIsIdempotent(t *testing.T) {
	stops := []models.Stop{
		{ID: 2001, Name: "Docklands D3"},
		{ID: 2002, Name: "Spencer St #1"},
		{ID: 2099, Name: "Depot"},
		{ID: 2003, Name: "Collins St", RouteSuppliedSequence: 4},
	}

	first := Resolve(stops, models.RouteTypeTram)
	second := Resolve(stops, models.RouteTypeTram)

	assert.Equal(t, first, second)
	assert.Equal(t, "Docklands D3", stops[0].Name, "input must not be reordered")
}

func TestAhead(t *testing.T) {
	ordered := Resolve([]models.Stop{
		{ID: 1, RouteSuppliedSequence: 1},
		{ID: 2, RouteSuppliedSequence: 2},
		{ID: 3, RouteSuppliedSequence: 3},
		{ID: 4, RouteSuppliedSequence: 4},
	}, models.RouteTypeTram)

	current, ahead, found := Ahead(ordered, 2)
	require.True(t, found)
	assert.Equal(t, 2, current.ID)
	assert.Equal(t, []int{3, 4}, ids(ahead))

	_, ahead, found = Ahead(ordered, 4)
	require.True(t, found)
	assert.Empty(t, ahead)

	_, _, found = Ahead(ordered, 99)
	assert.False(t, found)
}

func TestResolvedDropsSentinel(t *testing.T) {
	ordered := Resolve([]models.Stop{
		{ID: 0, Name: "nowhere"},
		{ID: 12, Name: "somewhere"},
	}, models.RouteTypeBus)

	assert.Equal(t, []int{12}, ids(Resolved(ordered)))
}
