// Package phrase holds the unit of analysis: one contiguous run of
// beat-upbeat ratios from a single solo segment.
package phrase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key identifies a phrase by solo and segment
type Key struct {
	SoloID    string `json:"id"`
	SegmentID string `json:"seg_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.SoloID, k.SegmentID)
}

// Less orders keys by solo id, then segment id. Segment ids compare
// numerically when both parse as integers.
func (k Key) Less(other Key) bool {
	if k.SoloID != other.SoloID {
		return k.SoloID < other.SoloID
	}
	a, errA := strconv.Atoi(k.SegmentID)
	b, errB := strconv.Atoi(other.SegmentID)
	if errA == nil && errB == nil {
		return a < b
	}
	return k.SegmentID < other.SegmentID
}

// Phrase is an immutable, temporally ordered sequence of BUR values
type Phrase struct {
	key    Key
	artist string
	values []float64
}

// New copies values so later mutation by the caller cannot leak in
func New(key Key, values []float64) Phrase {
	v := make([]float64, len(values))
	copy(v, values)
	return Phrase{
		key:    key,
		artist: ArtistName(key.SoloID),
		values: v,
	}
}

func (p Phrase) Key() Key       { return p.key }
func (p Phrase) Artist() string { return p.artist }
func (p Phrase) Len() int       { return len(p.values) }

// Values returns a copy of the BUR sequence
func (p Phrase) Values() []float64 {
	v := make([]float64, len(p.values))
	copy(v, p.values)
	return v
}

// Reversed returns the phrase with its values in reverse temporal order
func (p Phrase) Reversed() Phrase {
	v := make([]float64, len(p.values))
	for i, x := range p.values {
		v[len(v)-1-i] = x
	}
	return Phrase{key: p.key, artist: p.artist, values: v}
}

// ArtistName derives a display name from a solo identifier: the part before
// the first underscore, with a space inserted before every capital letter
// except the first character ("JohnColtrane_Giant" -> "John Coltrane").
func ArtistName(soloID string) string {
	base := soloID
	if i := strings.Index(soloID, "_"); i >= 0 {
		base = soloID[:i]
	}

	var b strings.Builder
	b.Grow(len(base) + 4)
	for i, r := range base {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Builder groups rows into phrases while preserving row order inside each phrase
type Builder struct {
	values map[Key][]float64
}

func NewBuilder() *Builder {
	return &Builder{values: make(map[Key][]float64)}
}

// Add appends a value to the phrase identified by key
func (b *Builder) Add(key Key, value float64) {
	b.values[key] = append(b.values[key], value)
}

// Phrases returns all grouped phrases ordered by key
func (b *Builder) Phrases() []Phrase {
	keys := make([]Key, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]Phrase, 0, len(keys))
	for _, k := range keys {
		out = append(out, New(k, b.values[k]))
	}
	return out
}

// FilterMinLength splits phrases into those with at least min values and the rest
func FilterMinLength(phrases []Phrase, min int) (kept, dropped []Phrase) {
	for _, p := range phrases {
		if p.Len() >= min {
			kept = append(kept, p)
		} else {
			dropped = append(dropped, p)
		}
	}
	return kept, dropped
}
