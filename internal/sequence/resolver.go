// Package sequence infers a stop ordering for a route direction when the
// upstream sequence data is missing or unreliable.
package sequence

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/randytsao24/gigsahead/internal/models"
)

const (
	// Unresolved sorts after every derivable sequence
	Unresolved = 999999

	docklandsOffset = 100
)

var (
	nameHashPattern  = regexp.MustCompile(`#(\d+)`)
	docklandsPattern = regexp.MustCompile(`D(\d+)`)
)

// Resolve assigns a sequence to every stop and returns them sorted
// ascending, ties kept in input order. The input slice is not modified.
func Resolve(stops []models.Stop, routeTypeHint models.RouteType) []models.OrderedStop {
	ordered := make([]models.OrderedStop, len(stops))
	for i, stop := range stops {
		seq, source := assign(stop, routeTypeHint)
		ordered[i] = models.OrderedStop{
			Stop:             stop,
			ResolvedSequence: seq,
			SequenceSource:   source,
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ResolvedSequence < ordered[j].ResolvedSequence
	})

	return ordered
}

func assign(stop models.Stop, hint models.RouteType) (int, models.SequenceSource) {
	if stop.RouteSuppliedSequence > 0 {
		return stop.RouteSuppliedSequence, models.SequenceFromRoute
	}

	if usesNameConventions(hint) {
		if n, ok := firstNumber(nameHashPattern, stop.Name); ok {
			return n, models.SequenceFromNameHash
		}
		if n, ok := firstNumber(docklandsPattern, stop.Name); ok {
			return docklandsOffset + n, models.SequenceFromDocklands
		}
	}

	if stop.ID > 0 {
		return stop.ID % 100, models.SequenceFromStopID
	}

	return Unresolved, models.SequenceNone
}

// Stop-name numbering is a light-rail convention; other modes skip it.
func usesNameConventions(hint models.RouteType) bool {
	return hint == models.RouteTypeTram || hint == models.RouteTypeUnknown
}

func firstNumber(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Ahead returns the stops strictly after the stop with currentStopID.
// found is false when the stop is not in the list.
func Ahead(ordered []models.OrderedStop, currentStopID int) (current models.OrderedStop, ahead []models.OrderedStop, found bool) {
	for i, stop := range ordered {
		if stop.ID == currentStopID {
			rest := make([]models.OrderedStop, len(ordered)-i-1)
			copy(rest, ordered[i+1:])
			return stop, rest, true
		}
	}
	return models.OrderedStop{}, nil, false
}

// Resolved filters out stops that fell through to the sentinel
func Resolved(ordered []models.OrderedStop) []models.OrderedStop {
	var result []models.OrderedStop
	for _, stop := range ordered {
		if stop.ResolvedSequence != Unresolved {
			result = append(result, stop)
		}
	}
	return result
}
