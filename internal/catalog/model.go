package catalog

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/bft-labs/subvault/pkg/codec"
)

const (
	// CatalogFile is the record file name of a Catalog.
	CatalogFile = "ALL"

	// DetailsCacheFile is the record file name of a DetailsCache.
	DetailsCacheFile = "DETAILS_CACHE"
)

// dateLayout is the fixed ten byte layout of an encoded ReleaseDay.
const dateLayout = "2006-01-02"

// Catalog is the "all info" record of one subscription.
type Catalog struct {
	// FetchedAt is a unix timestamp in seconds.
	FetchedAt int64

	// Index is nil when the catalog has never been populated.
	Index *Index
}

func (c *Catalog) FileName() string { return CatalogFile }
func (c *Catalog) Describe() string { return "all info" }

func (c *Catalog) MarshalCodec(e *codec.Encoder) {
	e.PutInt64(c.FetchedAt)
	e.PutOption(c.Index != nil)
	if c.Index != nil {
		c.Index.marshal(e)
	}
}

func (c *Catalog) UnmarshalCodec(d *codec.Decoder) {
	c.FetchedAt = d.Int64()
	c.Index = nil
	if d.Option() {
		c.Index = &Index{}
		c.Index.unmarshal(d)
	}
}

// Index holds the categories and entries of a catalog.
type Index struct {
	Categories map[uint64]string
	Entries    map[uint64]Entry

	// CategoryEntries maps a category ID to the sorted IDs of its entries.
	CategoryEntries map[uint64][]uint64

	// Uncategorized holds the sorted numbers of entries without a category.
	Uncategorized []uint64
}

// EntryNums returns the entry numbers in ascending order.
func (x *Index) EntryNums() []uint64 {
	return slices.Sorted(maps.Keys(x.Entries))
}

func (x *Index) marshal(e *codec.Encoder) {
	e.PutLen(len(x.Categories))
	for _, id := range slices.Sorted(maps.Keys(x.Categories)) {
		e.PutUint64(id)
		e.PutString(x.Categories[id])
	}

	e.PutLen(len(x.Entries))
	for _, num := range x.EntryNums() {
		e.PutUint64(num)
		entry := x.Entries[num]
		entry.marshal(e)
	}

	e.PutLen(len(x.CategoryEntries))
	for _, id := range slices.Sorted(maps.Keys(x.CategoryEntries)) {
		e.PutUint64(id)
		putUint64s(e, x.CategoryEntries[id])
	}

	putUint64s(e, x.Uncategorized)
}

func (x *Index) unmarshal(d *codec.Decoder) {
	n := d.Len(12)
	x.Categories = make(map[uint64]string, n)
	for i := 0; i < n; i++ {
		id := d.Uint64()
		x.Categories[id] = d.Str()
	}

	n = d.Len(8)
	x.Entries = make(map[uint64]Entry, n)
	for i := 0; i < n; i++ {
		num := d.Uint64()
		var entry Entry
		entry.unmarshal(d)
		x.Entries[num] = entry
	}

	n = d.Len(12)
	x.CategoryEntries = make(map[uint64][]uint64, n)
	for i := 0; i < n; i++ {
		id := d.Uint64()
		x.CategoryEntries[id] = uint64s(d)
	}

	x.Uncategorized = uint64s(d)
}

// Entry is one catalog item.
type Entry struct {
	Num          uint64
	Name         string
	ID           uint64
	LastModified int64
	Genre        string
	ReleaseDate  ReleaseDate
	CategoryID   *uint64

	// CategoryIDs is nil when absent, which is distinct from empty.
	CategoryIDs []uint64

	Rating *float64
}

func (x *Entry) marshal(e *codec.Encoder) {
	e.PutUint64(x.Num)
	e.PutString(x.Name)
	e.PutUint64(x.ID)
	e.PutInt64(x.LastModified)
	e.PutString(x.Genre)

	e.PutOption(x.ReleaseDate != nil)
	if x.ReleaseDate != nil {
		putReleaseDate(e, x.ReleaseDate)
	}

	putOptUint64(e, x.CategoryID)

	e.PutOption(x.CategoryIDs != nil)
	if x.CategoryIDs != nil {
		putUint64s(e, x.CategoryIDs)
	}

	e.PutOption(x.Rating != nil)
	if x.Rating != nil {
		e.PutFloat64(*x.Rating)
	}
}

func (x *Entry) unmarshal(d *codec.Decoder) {
	x.Num = d.Uint64()
	x.Name = d.Str()
	x.ID = d.Uint64()
	x.LastModified = d.Int64()
	x.Genre = d.Str()

	x.ReleaseDate = nil
	if d.Option() {
		x.ReleaseDate = releaseDate(d)
	}

	x.CategoryID = optUint64(d)

	x.CategoryIDs = nil
	if d.Option() {
		x.CategoryIDs = uint64s(d)
	}

	x.Rating = nil
	if d.Option() {
		v := d.Float64()
		x.Rating = &v
	}
}

// ReleaseDate is either a ReleaseYear or a ReleaseDay.
type ReleaseDate interface {
	fmt.Stringer
	releaseDate()
}

// ReleaseYear is a release date known only to the year.
type ReleaseYear uint64

func (ReleaseYear) releaseDate()     {}
func (y ReleaseYear) String() string { return fmt.Sprintf("%d", uint64(y)) }

// ReleaseDay is a calendar date, stored as "YYYY-MM-DD".
type ReleaseDay struct {
	time.Time
}

func (ReleaseDay) releaseDate()     {}
func (d ReleaseDay) String() string { return d.Format(dateLayout) }

const (
	tagReleaseYear uint8 = iota
	tagReleaseDay
	numReleaseTags
)

func putReleaseDate(e *codec.Encoder, rd ReleaseDate) {
	switch v := rd.(type) {
	case ReleaseYear:
		e.PutTag(tagReleaseYear)
		e.PutUint64(uint64(v))
	case ReleaseDay:
		s := v.Format(dateLayout)
		if len(s) != len(dateLayout) {
			e.Fail(fmt.Errorf("release date %q does not fit %s", s, dateLayout))
			return
		}
		e.PutTag(tagReleaseDay)
		e.PutRaw([]byte(s))
	default:
		e.Fail(fmt.Errorf("unknown release date type %T", rd))
	}
}

func releaseDate(d *codec.Decoder) ReleaseDate {
	switch d.Tag(numReleaseTags) {
	case tagReleaseYear:
		return ReleaseYear(d.Uint64())
	default:
		raw := d.Raw(len(dateLayout))
		if raw == nil {
			return nil
		}
		t, err := time.Parse(dateLayout, string(raw))
		if err != nil {
			d.Fail(fmt.Errorf("invalid release date %q: %w", raw, err))
			return nil
		}
		return ReleaseDay{Time: t}
	}
}

// Details is the detailed info of one entry.
type Details struct {
	// Examples is nil when the entry has none.
	Examples Examples
}

func (x *Details) marshal(e *codec.Encoder) {
	e.PutOption(x.Examples != nil)
	if x.Examples == nil {
		return
	}
	switch v := x.Examples.(type) {
	case ExampleGroups:
		e.PutTag(tagExampleGroups)
		e.PutLen(len(v))
		for _, name := range slices.Sorted(maps.Keys(v)) {
			e.PutString(name)
			putExamples(e, v[name])
		}
	case ExampleChapters:
		e.PutTag(tagExampleChapters)
		e.PutLen(len(v))
		for _, chapter := range v {
			putExamples(e, chapter)
		}
	default:
		e.Fail(fmt.Errorf("unknown examples type %T", x.Examples))
	}
}

func (x *Details) unmarshal(d *codec.Decoder) {
	x.Examples = nil
	if !d.Option() {
		return
	}
	switch d.Tag(numExampleTags) {
	case tagExampleGroups:
		n := d.Len(8)
		groups := make(ExampleGroups, n)
		for i := 0; i < n; i++ {
			name := d.Str()
			groups[name] = examples(d)
		}
		x.Examples = groups
	default:
		n := d.Len(4)
		chapters := make(ExampleChapters, 0, n)
		for i := 0; i < n; i++ {
			chapters = append(chapters, examples(d))
		}
		x.Examples = chapters
	}
}

// Examples is either ExampleGroups or ExampleChapters.
type Examples interface {
	// All returns every example. Groups are visited in name order.
	All() []Example
	examples()
}

// ExampleGroups are examples keyed by a group name.
type ExampleGroups map[string][]Example

func (ExampleGroups) examples() {}

func (g ExampleGroups) All() []Example {
	var out []Example
	for _, name := range slices.Sorted(maps.Keys(g)) {
		out = append(out, g[name]...)
	}
	return out
}

// ExampleChapters are examples grouped by chapter, in chapter order.
type ExampleChapters [][]Example

func (ExampleChapters) examples() {}

func (c ExampleChapters) All() []Example {
	var out []Example
	for _, chapter := range c {
		out = append(out, chapter...)
	}
	return out
}

const (
	tagExampleGroups uint8 = iota
	tagExampleChapters
	numExampleTags
)

// Example is a single playable item of an entry.
type Example struct {
	ID           uint64
	Chapter      *uint64
	Num          *uint64
	Title        string
	ContainerExt string
	Added        int64
	Info         *ExampleInfo
}

// ExampleInfo holds optional media properties of an Example.
type ExampleInfo struct {
	DurationSecs *uint64

	// Duration is formatted as HH:MM:SS.
	Duration *string

	Bitrate *uint64
	Video   *VideoInfo
	Audio   *AudioInfo
}

type VideoInfo struct {
	Codec  *string
	Width  uint64
	Height uint64
}

type AudioInfo struct {
	Codec      *string
	SampleRate uint64
	Channels   uint64
}

func putExamples(e *codec.Encoder, xs []Example) {
	e.PutLen(len(xs))
	for i := range xs {
		xs[i].marshal(e)
	}
}

func examples(d *codec.Decoder) []Example {
	// ID, two option tags, two length prefixes, Added and one option tag.
	n := d.Len(8 + 2 + 8 + 8 + 1)
	out := make([]Example, 0, n)
	for i := 0; i < n; i++ {
		var x Example
		x.unmarshal(d)
		out = append(out, x)
	}
	return out
}

func (x *Example) marshal(e *codec.Encoder) {
	e.PutUint64(x.ID)
	putOptUint64(e, x.Chapter)
	putOptUint64(e, x.Num)
	e.PutString(x.Title)
	e.PutString(x.ContainerExt)
	e.PutInt64(x.Added)

	e.PutOption(x.Info != nil)
	if x.Info == nil {
		return
	}
	info := x.Info
	putOptUint64(e, info.DurationSecs)
	putOptString(e, info.Duration)
	putOptUint64(e, info.Bitrate)

	e.PutOption(info.Video != nil)
	if info.Video != nil {
		putOptString(e, info.Video.Codec)
		e.PutUint64(info.Video.Width)
		e.PutUint64(info.Video.Height)
	}

	e.PutOption(info.Audio != nil)
	if info.Audio != nil {
		putOptString(e, info.Audio.Codec)
		e.PutUint64(info.Audio.SampleRate)
		e.PutUint64(info.Audio.Channels)
	}
}

func (x *Example) unmarshal(d *codec.Decoder) {
	x.ID = d.Uint64()
	x.Chapter = optUint64(d)
	x.Num = optUint64(d)
	x.Title = d.Str()
	x.ContainerExt = d.Str()
	x.Added = d.Int64()

	x.Info = nil
	if !d.Option() {
		return
	}
	info := &ExampleInfo{
		DurationSecs: optUint64(d),
		Duration:     optString(d),
		Bitrate:      optUint64(d),
	}
	if d.Option() {
		info.Video = &VideoInfo{Codec: optString(d)}
		info.Video.Width = d.Uint64()
		info.Video.Height = d.Uint64()
	}
	if d.Option() {
		info.Audio = &AudioInfo{Codec: optString(d)}
		info.Audio.SampleRate = d.Uint64()
		info.Audio.Channels = d.Uint64()
	}
	x.Info = info
}

// DetailsCache is the "entry details cache" record of one subscription.
type DetailsCache struct {
	Items map[uint64]CacheItem
}

// CacheItem is one cached Details with the time it was stored.
type CacheItem struct {
	FetchedAt int64
	Details   Details
}

// NewDetailsCache returns an empty cache.
func NewDetailsCache() *DetailsCache {
	return &DetailsCache{Items: make(map[uint64]CacheItem)}
}

func (c *DetailsCache) FileName() string { return DetailsCacheFile }
func (c *DetailsCache) Describe() string { return "entry details cache" }

// Insert stores details for the entry num, stamped with fetchedAt.
func (c *DetailsCache) Insert(num uint64, details Details, fetchedAt time.Time) {
	if c.Items == nil {
		c.Items = make(map[uint64]CacheItem)
	}
	c.Items[num] = CacheItem{FetchedAt: fetchedAt.Unix(), Details: details}
}

// Get returns the cached details of entry num.
func (c *DetailsCache) Get(num uint64) (*Details, bool) {
	item, ok := c.Items[num]
	if !ok {
		return nil, false
	}
	return &item.Details, true
}

func (c *DetailsCache) MarshalCodec(e *codec.Encoder) {
	e.PutLen(len(c.Items))
	for _, num := range slices.Sorted(maps.Keys(c.Items)) {
		item := c.Items[num]
		e.PutUint64(num)
		e.PutInt64(item.FetchedAt)
		item.Details.marshal(e)
	}
}

func (c *DetailsCache) UnmarshalCodec(d *codec.Decoder) {
	n := d.Len(17)
	c.Items = make(map[uint64]CacheItem, n)
	for i := 0; i < n; i++ {
		num := d.Uint64()
		var item CacheItem
		item.FetchedAt = d.Int64()
		item.Details.unmarshal(d)
		c.Items[num] = item
	}
}

func putUint64s(e *codec.Encoder, xs []uint64) {
	e.PutLen(len(xs))
	for _, x := range xs {
		e.PutUint64(x)
	}
}

func uint64s(d *codec.Decoder) []uint64 {
	n := d.Len(8)
	out := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Uint64())
	}
	return out
}

func putOptUint64(e *codec.Encoder, v *uint64) {
	e.PutOption(v != nil)
	if v != nil {
		e.PutUint64(*v)
	}
}

func optUint64(d *codec.Decoder) *uint64 {
	if !d.Option() {
		return nil
	}
	v := d.Uint64()
	return &v
}

func putOptString(e *codec.Encoder, v *string) {
	e.PutOption(v != nil)
	if v != nil {
		e.PutString(*v)
	}
}

func optString(d *codec.Decoder) *string {
	if !d.Option() {
		return nil
	}
	v := d.Str()
	return &v
}
