package app

import (
	"sort"

	"burtrend/adapters/stats/correction"
)

// ArtistTally accumulates per-artist phrase counts, labelled hits and metric sums
type ArtistTally struct {
	Artist  string
	Phrases int
	Counts  map[string]int
	Sums    map[string]float64
}

// Count returns the hits recorded under label
func (a ArtistTally) Count(label string) int { return a.Counts[label] }

// Percent is the share of the artist's phrases with label, 0 for no phrases
func (a ArtistTally) Percent(label string) float64 {
	return Percent(a.Counts[label], a.Phrases)
}

// Mean averages a metric over the artist's phrases
func (a ArtistTally) Mean(metric string) float64 {
	if a.Phrases == 0 {
		return 0
	}
	return a.Sums[metric] / float64(a.Phrases)
}

// Tally groups outcomes by artist
type Tally struct {
	artists map[string]*ArtistTally
}

func NewTally() *Tally {
	return &Tally{artists: make(map[string]*ArtistTally)}
}

func (t *Tally) entry(artist string) *ArtistTally {
	a, ok := t.artists[artist]
	if !ok {
		a = &ArtistTally{Artist: artist, Counts: make(map[string]int), Sums: make(map[string]float64)}
		t.artists[artist] = a
	}
	return a
}

// Add records one phrase of artist carrying the given labels
func (t *Tally) Add(artist string, labels ...string) {
	a := t.entry(artist)
	a.Phrases++
	for _, l := range labels {
		a.Counts[l]++
	}
}

// Observe adds v to the artist's running sum of metric
func (t *Tally) Observe(artist, metric string, v float64) {
	t.entry(artist).Sums[metric] += v
}

// Len is the number of artists seen
func (t *Tally) Len() int { return len(t.artists) }

// Sorted returns artists by phrase count descending, then by name
func (t *Tally) Sorted() []ArtistTally {
	out := make([]ArtistTally, 0, len(t.artists))
	for _, a := range t.artists {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Phrases != out[j].Phrases {
			return out[i].Phrases > out[j].Phrases
		}
		return out[i].Artist < out[j].Artist
	})
	return out
}

// Percent returns 100*count/total, 0 when total is 0
func Percent(count, total int) float64 {
	return 100 * correction.Rate(count, total)
}
