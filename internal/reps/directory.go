// Package reps serves the representative directory behind the dashboard's
// overview and profile pages. The directory is read-only once built.
package reps

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"call-insights-go/internal/types"
)

var ErrNotFound = errors.New("rep not found")

// Order selects a descending sort key for Sorted.
type Order string

const (
	OrderScore       Order = "score"
	OrderCalls       Order = "calls"
	OrderEscalations Order = "escalations"
)

// ParseOrder accepts the query-string form of an Order. Empty means score.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderScore:
		return OrderScore, nil
	case OrderCalls:
		return OrderCalls, nil
	case OrderEscalations:
		return OrderEscalations, nil
	}
	return "", fmt.Errorf("unknown sort order %q (use score, calls or escalations)", s)
}

type Directory struct {
	reps []types.Rep
	byID map[string]int
}

// New builds a directory. Rep ids must be non-empty and unique.
func New(reps []types.Rep) (*Directory, error) {
	d := &Directory{
		reps: make([]types.Rep, 0, len(reps)),
		byID: make(map[string]int, len(reps)),
	}
	for _, r := range reps {
		if r.ID == "" {
			return nil, fmt.Errorf("rep %q has no id", r.Name)
		}
		if _, dup := d.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rep id %q", r.ID)
		}
		d.byID[r.ID] = len(d.reps)
		d.reps = append(d.reps, cloneRep(r))
	}
	return d, nil
}

// Get returns the rep with the given id or ErrNotFound.
func (d *Directory) Get(id string) (types.Rep, error) {
	i, ok := d.byID[strings.TrimSpace(id)]
	if !ok {
		return types.Rep{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return cloneRep(d.reps[i]), nil
}

// List returns every rep in directory order.
func (d *Directory) List() []types.Rep {
	out := make([]types.Rep, len(d.reps))
	for i, r := range d.reps {
		out[i] = cloneRep(r)
	}
	return out
}

func (d *Directory) Len() int { return len(d.reps) }

// Sorted returns the reps ordered by o, highest first. Ties keep directory
// order.
func (d *Directory) Sorted(o Order) []types.Rep {
	out := d.List()
	var key func(types.Rep) int
	switch o {
	case OrderCalls:
		key = func(r types.Rep) int { return len(r.Calls) }
	case OrderEscalations:
		key = func(r types.Rep) int { return r.Escalations }
	default:
		key = func(r types.Rep) int { return r.SentimentScore }
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	return out
}

func cloneRep(r types.Rep) types.Rep {
	if r.Calls != nil {
		r.Calls = append([]types.RepCall(nil), r.Calls...)
	}
	return r
}

type seedRep struct {
	name        string
	score       int
	escalations int
	tone        string
}

var seed = []seedRep{
	{"Alice Johnson", 85, 2, "positive"},
	{"Bob Smith", 70, 4, "neutral"},
	{"Carla Diaz", 90, 1, "very positive"},
	{"David Kim", 60, 3, "neutral"},
	{"Eva Patel", 77, 2, "generally positive"},
	{"Faisal Khan", 50, 5, "mixed"},
	{"Grace Lee", 95, 0, "excellent"},
	{"Hector Ruiz", 65, 3, "somewhat frustrated"},
	{"Ivy Wang", 88, 1, "smooth"},
	{"Jamal White", 73, 2, "fine"},
	{"Kira Nakamura", 82, 2, "great"},
	{"Liam Novak", 55, 4, "frustrated"},
}

// SeedReps returns the built-in demo directory: twelve reps with two
// historical calls each.
func SeedReps() []types.Rep {
	out := make([]types.Rep, 0, len(seed))
	for i, s := range seed {
		out = append(out, types.Rep{
			ID:             fmt.Sprintf("rep%03d", i+1),
			Name:           s.name,
			SentimentScore: s.score,
			Escalations:    s.escalations,
			Calls: []types.RepCall{
				{
					Date:       "2025-06-11",
					Transcript: fmt.Sprintf("This is a sample call transcript for %s. The customer had a %s experience.", s.name, s.tone),
					Sentiment: types.RepSentiment{
						Outcome: outcomeAbove(s.score, 65),
						Score:   fraction(s.score),
					},
				},
				{
					Date:       "2025-06-10",
					Transcript: fmt.Sprintf("Another example of customer interaction with %s.", s.name),
					Sentiment: types.RepSentiment{
						Outcome: outcomeAbove(s.score, 70),
						Score:   fraction(s.score - 10),
					},
				},
			},
		})
	}
	return out
}

// Seed returns a directory over SeedReps.
func Seed() *Directory {
	d, err := New(SeedReps())
	if err != nil {
		panic(err)
	}
	return d
}

func outcomeAbove(score, threshold int) string {
	if score > threshold {
		return "resolved"
	}
	return "escalated"
}

func fraction(score int) float64 {
	return float64(score) / 100
}
