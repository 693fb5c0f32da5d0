package catalog

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// firstExampleID is the ID given to the first generated example.
const firstExampleID = 500_000

// Subscription identifies one remote account and its storage namespace.
type Subscription struct {
	Idx      uint8
	Domain   string
	Username string
	Password string
}

// String omits the credentials so subscriptions can be logged.
func (s Subscription) String() string {
	return fmt.Sprintf("subscription %d (%s)", s.Idx, s.Domain)
}

// Generator produces synthetic subscriptions, catalogs and details.
// A Generator is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a Generator with a deterministic seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func newRandomGenerator() *Generator {
	return NewGenerator(rand.Uint64())
}

// GenerateSubscriptions returns n subscriptions with indexes 1..n.
func GenerateSubscriptions(n uint8) []Subscription {
	return newRandomGenerator().Subscriptions(n)
}

// GenerateCatalog returns a random catalog. size scales the number of
// categories linearly and the number of entries quadratically.
func GenerateCatalog(size int) (*Catalog, error) {
	return newRandomGenerator().Catalog(size)
}

// GenerateDetails returns a details cache holding random details for every
// entry of c.
func (c *Catalog) GenerateDetails() *DetailsCache {
	return newRandomGenerator().Details(c)
}

// Subscriptions returns n subscriptions with indexes 1..n.
func (g *Generator) Subscriptions(n uint8) []Subscription {
	subs := make([]Subscription, 0, n)
	for i := 1; i <= int(n); i++ {
		subs = append(subs, Subscription{
			Idx:      uint8(i),
			Domain:   "https://" + strings.ToLower(g.str(16, 16)) + ".com",
			Username: g.str(16, 16),
			Password: g.str(16, 16),
		})
	}
	return subs
}

// Catalog returns a random catalog. See GenerateCatalog.
func (g *Generator) Catalog(size int) (*Catalog, error) {
	if size < 1 {
		return nil, fmt.Errorf("catalog size must be at least 1, got %d", size)
	}
	lower := max(size*75/100, 1)
	upper := max(size*125/100, lower)

	catIDs := g.uniqueIDs(1000, 10000, lower, upper)
	categories := make(map[uint64]string, len(catIDs))
	for _, id := range catIDs {
		categories[id] = g.words(2, 4)
	}

	entryIDs := g.uniqueIDs(10001, 100000, lower*len(catIDs), upper*len(catIDs))
	entries := make(map[uint64]Entry, len(entryIDs))
	categoryEntries := make(map[uint64][]uint64, len(catIDs))
	for _, id := range catIDs {
		categoryEntries[id] = []uint64{}
	}
	for _, id := range entryIDs {
		cat := catIDs[g.rng.IntN(len(catIDs))]
		rating := g.rng.Float64() * 10
		entries[id] = Entry{
			Num:          id,
			Name:         g.words(2, 6),
			ID:           id,
			LastModified: g.betweenInt64(1700000000, 1720000000),
			Genre:        g.str(8, 24),
			ReleaseDate:  g.releaseDay(),
			CategoryID:   &cat,
			CategoryIDs:  []uint64{cat},
			Rating:       &rating,
		}
		// entryIDs is sorted, so each category list stays sorted.
		categoryEntries[cat] = append(categoryEntries[cat], id)
	}

	return &Catalog{
		FetchedAt: g.now().Unix(),
		Index: &Index{
			Categories:      categories,
			Entries:         entries,
			CategoryEntries: categoryEntries,
			Uncategorized:   []uint64{},
		},
	}, nil
}

// Details returns random details, organised in chapters, for every entry
// of c. Example IDs are unique across the whole cache.
func (g *Generator) Details(c *Catalog) *DetailsCache {
	cache := NewDetailsCache()
	if c.Index == nil {
		return cache
	}

	now := g.now()
	nextID := uint64(firstExampleID)
	for _, num := range c.Index.EntryNums() {
		chapters := make(ExampleChapters, 0, 12)
		numChapters := g.between(1, 12)
		for ch := uint64(1); ch <= numChapters; ch++ {
			count := g.between(6, 24)
			chapter := make([]Example, 0, count)
			for n := uint64(1); n <= count; n++ {
				chapter = append(chapter, g.example(nextID, ch, n))
				nextID++
			}
			chapters = append(chapters, chapter)
		}
		cache.Insert(num, Details{Examples: chapters}, now)
	}
	return cache
}

func (g *Generator) example(id, chapter, num uint64) Example {
	secs := g.between(600, 5000)
	duration := formatHMS(secs)
	bitrate := g.between(1000, 15000)
	videoCodec := "h264"
	audioCodec := "aac"
	return Example{
		ID:           id,
		Chapter:      &chapter,
		Num:          &num,
		Title:        g.words(2, 6),
		ContainerExt: g.str(2, 4),
		Added:        1720000000,
		Info: &ExampleInfo{
			DurationSecs: &secs,
			Duration:     &duration,
			Bitrate:      &bitrate,
			Video:        &VideoInfo{Codec: &videoCodec, Width: 1920, Height: 1080},
			Audio:        &AudioInfo{Codec: &audioCodec, SampleRate: 48000, Channels: 2},
		},
	}
}

// releaseDay returns a random date, or nil when the drawn day does not
// exist in the drawn month.
func (g *Generator) releaseDay() ReleaseDate {
	y := int(g.betweenInt64(2000, 2023))
	m := time.Month(g.betweenInt64(1, 12))
	d := int(g.betweenInt64(1, 31))
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return nil
	}
	return ReleaseDay{Time: t}
}

// uniqueIDs draws 2*hiCount values from [lo, hi], dedups and sorts them and
// keeps a random count in [loCount, hiCount] of the smallest.
func (g *Generator) uniqueIDs(lo, hi uint64, loCount, hiCount int) []uint64 {
	seen := make(map[uint64]struct{}, 2*hiCount)
	for i := 0; i < 2*hiCount; i++ {
		seen[g.between(lo, hi)] = struct{}{}
	}
	ids := make([]uint64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	keep := loCount + g.rng.IntN(hiCount-loCount+1)
	if keep < len(ids) {
		ids = ids[:keep]
	}
	return ids
}

// words joins between lo and hi random strings of 3 to 32 characters.
func (g *Generator) words(lo, hi int) string {
	n := lo + g.rng.IntN(hi-lo+1)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = g.str(3, 32)
	}
	return strings.Join(parts, " ")
}

func (g *Generator) str(lo, hi int) string {
	n := lo + g.rng.IntN(hi-lo+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[g.rng.IntN(len(alphanumeric))]
	}
	return string(b)
}

func (g *Generator) between(lo, hi uint64) uint64 {
	return lo + g.rng.Uint64N(hi-lo+1)
}

func (g *Generator) betweenInt64(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo+1)
}

func formatHMS(secs uint64) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
