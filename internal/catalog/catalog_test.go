package catalog

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/subvault/pkg/codec"
	"github.com/bft-labs/subvault/pkg/log"
)

func ptr[T any](v T) *T { return &v }

func testSub() Subscription {
	return Subscription{Idx: 5, Domain: "https://example.com", Username: "user", Password: "pass"}
}

func TestGenerateSubscriptions(t *testing.T) {
	subs := NewGenerator(1).Subscriptions(3)
	require.Len(t, subs, 3)

	domain := regexp.MustCompile(`^https://[a-z0-9]{16}\.com$`)
	for i, s := range subs {
		assert.EqualValues(t, i+1, s.Idx)
		assert.Regexp(t, domain, s.Domain)
		assert.Len(t, s.Username, 16)
		assert.Len(t, s.Password, 16)
	}
	assert.Empty(t, GenerateSubscriptions(0))
}

func TestSubscriptionStringHidesCredentials(t *testing.T) {
	s := testSub().String()
	assert.Contains(t, s, "5")
	assert.NotContains(t, s, "pass")
	assert.NotContains(t, s, "user")
}

func TestGenerateCatalogShape(t *testing.T) {
	g := NewGenerator(42)
	g.now = func() time.Time { return time.Unix(1700000000, 0) }

	c, err := g.Catalog(4)
	require.NoError(t, err)
	require.NotNil(t, c.Index)
	assert.EqualValues(t, 1700000000, c.FetchedAt)

	idx := c.Index
	assert.GreaterOrEqual(t, len(idx.Categories), 3)
	assert.LessOrEqual(t, len(idx.Categories), 5)
	assert.NotEmpty(t, idx.Entries)

	total := 0
	for cat, nums := range idx.CategoryEntries {
		_, ok := idx.Categories[cat]
		assert.True(t, ok, "unknown category %d", cat)
		assert.IsNonDecreasing(t, nums)
		for _, num := range nums {
			e := idx.Entries[num]
			require.NotNil(t, e.CategoryID)
			assert.Equal(t, cat, *e.CategoryID)
		}
		total += len(nums)
	}
	assert.Equal(t, len(idx.Entries), total)
	assert.Empty(t, idx.Uncategorized)

	_, err = g.Catalog(0)
	assert.Error(t, err)
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := NewGenerator(7).Catalog(2)
	require.NoError(t, err)
	b, err := NewGenerator(7).Catalog(2)
	require.NoError(t, err)
	a.FetchedAt, b.FetchedAt = 0, 0
	assert.Equal(t, a, b)
}

func TestGenerateDetailsCoversEveryEntry(t *testing.T) {
	g := NewGenerator(3)
	c, err := g.Catalog(2)
	require.NoError(t, err)
	cache := g.Details(c)

	require.Len(t, cache.Items, len(c.Index.Entries))
	seen := map[uint64]bool{}
	for num := range c.Index.Entries {
		d, ok := cache.Get(num)
		require.True(t, ok)
		chapters, ok := d.Examples.(ExampleChapters)
		require.True(t, ok)
		assert.NotEmpty(t, chapters)
		assert.LessOrEqual(t, len(chapters), 12)
		for i, ch := range chapters {
			assert.GreaterOrEqual(t, len(ch), 6)
			for _, ex := range ch {
				assert.False(t, seen[ex.ID], "duplicate example id %d", ex.ID)
				seen[ex.ID] = true
				assert.EqualValues(t, i+1, *ex.Chapter)
			}
		}
	}

	assert.Empty(t, g.Details(&Catalog{}).Items)
}

func TestCatalogCodecRoundTrip(t *testing.T) {
	g := NewGenerator(11)
	c, err := g.Catalog(3)
	require.NoError(t, err)
	// Cover both release date variants and absent options.
	for num, e := range c.Index.Entries {
		e.ReleaseDate = ReleaseYear(1999)
		e.Rating = nil
		e.CategoryIDs = nil
		c.Index.Entries[num] = e
		break
	}

	b, err := codec.Marshal(c)
	require.NoError(t, err)
	var got Catalog
	require.NoError(t, codec.Unmarshal(b, &got))
	assert.Equal(t, c, &got)

	empty := &Catalog{FetchedAt: 9}
	b, err = codec.Marshal(empty)
	require.NoError(t, err)
	var gotEmpty Catalog
	require.NoError(t, codec.Unmarshal(b, &gotEmpty))
	assert.Nil(t, gotEmpty.Index)
}

func TestCatalogEncodingIsCanonical(t *testing.T) {
	c, err := NewGenerator(5).Catalog(3)
	require.NoError(t, err)
	first, err := codec.Marshal(c)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := codec.Marshal(c)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDetailsCacheCodecRoundTrip(t *testing.T) {
	cache := NewDetailsCache()
	at := time.Unix(1720000000, 0)
	cache.Insert(1, Details{Examples: ExampleGroups{
		"b": {{ID: 2, Title: "two", ContainerExt: "mp4"}},
		"a": {{ID: 1, Title: "one C01N02", ContainerExt: "mkv", Info: &ExampleInfo{Bitrate: ptr(uint64(5))}}},
	}}, at)
	cache.Insert(2, Details{}, at)
	cache.Insert(3, Details{Examples: ExampleChapters{{{ID: 3, Chapter: ptr(uint64(1)), Num: ptr(uint64(1))}}}}, at)

	b, err := codec.Marshal(cache)
	require.NoError(t, err)
	var got DetailsCache
	require.NoError(t, codec.Unmarshal(b, &got))
	assert.Equal(t, cache, &got)
	assert.EqualValues(t, 1720000000, got.Items[1].FetchedAt)
}

func TestReleaseDateDecodeErrors(t *testing.T) {
	e := codec.NewEncoder(0)
	e.PutTag(tagReleaseDay)
	e.PutRaw([]byte("2021-13-45"))
	b, err := e.Bytes()
	require.NoError(t, err)

	d := codec.NewDecoder(b)
	assert.Nil(t, releaseDate(d))
	assert.Error(t, d.Err())

	d = codec.NewDecoder([]byte{7})
	_ = releaseDate(d)
	assert.ErrorIs(t, d.Err(), codec.ErrInvalidTag)
}

func TestExampleGroupsAllIsNameOrdered(t *testing.T) {
	g := ExampleGroups{
		"z": {{ID: 3}},
		"a": {{ID: 1}, {ID: 2}},
	}
	var ids []uint64
	for _, ex := range g.All() {
		ids = append(ids, ex.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestBuildListingNames(t *testing.T) {
	c := &Catalog{Index: &Index{Entries: map[uint64]Entry{
		10: {Num: 10, Name: "Show"},
	}}}
	cache := NewDetailsCache()
	cache.Insert(10, Details{Examples: ExampleChapters{{
		{ID: 1, Chapter: ptr(uint64(1)), Num: ptr(uint64(2)), ContainerExt: "mkv"},
		{ID: 2, Title: "pilot C3 N14 recap", ContainerExt: "mp4"},
		{ID: 3, Title: "C1N1 then C02N05", ContainerExt: "ts"},
		{ID: 4, Title: "Special", ContainerExt: "avi", Info: &ExampleInfo{
			DurationSecs: ptr(uint64(3725)),
			Bitrate:      ptr(uint64(900)),
			Video:        &VideoInfo{Codec: ptr("hevc"), Width: 640, Height: 480},
			Audio:        &AudioInfo{Codec: ptr("opus"), Channels: 6},
		}},
	}}}, time.Now())

	l := BuildListing(c, cache, testSub(), log.NoopLogger{})
	require.NotNil(t, l)
	assert.EqualValues(t, 5, l.Subscription)

	names := make([]string, 0, len(l.Streams))
	for _, s := range l.Streams {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"Show C01N02",
		"Show C03N14",
		"Show C02N05",
		"Special Show / 640x480 / multi / 01:02:05 / 900 kbps / HEVC / OPUS",
	}, names)
	assert.Equal(t, "entries|https://example.com|user|pass|1.mkv", l.Streams[0].URL)
	assert.Equal(t, "entries|https://example.com|user|pass|4.avi", l.Streams[3].URL)
}

func TestBuildListingSkipsMissingDetails(t *testing.T) {
	c := &Catalog{Index: &Index{Entries: map[uint64]Entry{
		1: {Num: 1, Name: "cached"},
		2: {Num: 2, Name: "missing"},
		3: {Num: 3, Name: "no examples"},
	}}}
	cache := NewDetailsCache()
	cache.Insert(1, Details{Examples: ExampleChapters{{{ID: 9, Chapter: ptr(uint64(1)), Num: ptr(uint64(1)), ContainerExt: "mp4"}}}}, time.Now())
	cache.Insert(3, Details{}, time.Now())

	l := BuildListing(c, cache, testSub(), nil)
	require.Len(t, l.Streams, 1)
	assert.Equal(t, "cached C01N01", l.Streams[0].Name)

	assert.Nil(t, BuildListing(&Catalog{}, cache, testSub(), nil))
}

func TestFormatListing(t *testing.T) {
	got := FormatListing([]*Listing{
		{Subscription: 1, Streams: []Stream{{Name: "a", URL: "u1"}}},
		nil,
		{Subscription: 2, Streams: []Stream{{Name: "b", URL: "u2"}}},
	})
	want := ListingHeader + "\n" +
		"#NAME#a\n#URL#u1\n" +
		"#NAME#b\n#URL#u2\n"
	assert.Equal(t, want, got)

	assert.Equal(t, ListingHeader+"\n", FormatListing(nil))
}

func TestGeneratedListingEndToEnd(t *testing.T) {
	g := NewGenerator(9)
	c, err := g.Catalog(1)
	require.NoError(t, err)
	cache := g.Details(c)

	l := BuildListing(c, cache, testSub(), nil)
	require.NotNil(t, l)
	total := 0
	for _, item := range cache.Items {
		total += len(item.Details.Examples.All())
	}
	assert.Len(t, l.Streams, total)

	out := FormatListing([]*Listing{l})
	assert.Equal(t, 1+2*total, strings.Count(out, "\n"))
	assert.True(t, strings.HasPrefix(out, ListingHeader))
}
