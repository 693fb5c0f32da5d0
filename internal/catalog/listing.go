package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bft-labs/subvault/pkg/log"
)

// ListingHeader is the first line of a formatted listing.
const ListingHeader = "##Random Text File Format Header##"

// chapterNum finds "C<chapter>N<num>" markers in example titles, with
// optional whitespace between the two parts.
var chapterNum = regexp.MustCompile(`\bC(\d+)\s*N(\d+)`)

// Stream is one playable line of a listing.
type Stream struct {
	Name string
	URL  string
}

// Listing holds the streams of one subscription, in ascending entry order.
type Listing struct {
	Subscription uint8
	Streams      []Stream
}

// BuildListing extracts a stream for every example of every entry in c.
// Entries missing from cache are logged and skipped. BuildListing returns
// nil when c has no index.
func BuildListing(c *Catalog, cache *DetailsCache, sub Subscription, logger log.Logger) *Listing {
	if c.Index == nil {
		return nil
	}
	logger = log.OrNoop(logger).With(log.Int("sub", int(sub.Idx)))

	listing := &Listing{Subscription: sub.Idx}
	for _, num := range c.Index.EntryNums() {
		entry := c.Index.Entries[num]
		details, ok := cache.Get(num)
		if !ok {
			logger.Error("entry details not in cache", log.String("entry", entry.Name), log.Uint64("num", num))
			continue
		}
		if details.Examples == nil {
			continue
		}
		for _, ex := range details.Examples.All() {
			listing.Streams = append(listing.Streams, Stream{
				Name: streamName(entry, ex, logger),
				URL:  streamURL(sub, ex),
			})
		}
	}
	return listing
}

// FormatListing renders listings as text: the header line followed by a
// #NAME# and a #URL# line per stream. nil listings are skipped.
func FormatListing(listings []*Listing) string {
	var b strings.Builder
	n := 0
	for _, l := range listings {
		if l != nil {
			n += len(l.Streams)
		}
	}
	b.Grow(len(ListingHeader) + 1 + n*256)

	b.WriteString(ListingHeader)
	b.WriteByte('\n')
	for _, l := range listings {
		if l == nil {
			continue
		}
		for _, s := range l.Streams {
			b.WriteString("#NAME#")
			b.WriteString(s.Name)
			b.WriteByte('\n')
			b.WriteString("#URL#")
			b.WriteString(s.URL)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func streamURL(sub Subscription, ex Example) string {
	var b strings.Builder
	b.Grow(len(sub.Domain) + len(sub.Username) + len(sub.Password) + len(ex.ContainerExt) + 32)
	b.WriteString("entries|")
	b.WriteString(sub.Domain)
	b.WriteByte('|')
	b.WriteString(sub.Username)
	b.WriteByte('|')
	b.WriteString(sub.Password)
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(ex.ID, 10))
	b.WriteByte('.')
	b.WriteString(ex.ContainerExt)
	return b.String()
}

func streamName(entry Entry, ex Example, logger log.Logger) string {
	extra := describeInfo(ex.Info)
	if ex.Chapter != nil && ex.Num != nil {
		return fmt.Sprintf("%s C%02dN%02d%s", entry.Name, *ex.Chapter, *ex.Num, extra)
	}

	if c, n, ok := guessChapterNum(ex.Title); ok {
		logger.Warn("chapter and number missing from example, guessed from title",
			log.String("title", ex.Title), log.String("guess", fmt.Sprintf("C%02dN%02d", c, n)))
		return fmt.Sprintf("%s C%02dN%02d%s", entry.Name, c, n, extra)
	}

	logger.Warn("chapter and number missing from example, using title", log.String("title", ex.Title))
	return fmt.Sprintf("%s %s%s", ex.Title, entry.Name, extra)
}

// guessChapterNum returns the last chapter/number marker in title.
func guessChapterNum(title string) (chapter, num uint64, ok bool) {
	matches := chapterNum.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return 0, 0, false
	}
	m := matches[len(matches)-1]
	c, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return c, n, true
}

// describeInfo renders the " / "-separated media summary appended to a
// stream name.
func describeInfo(info *ExampleInfo) string {
	if info == nil {
		return ""
	}
	var parts []string
	if v := info.Video; v != nil {
		parts = append(parts, fmt.Sprintf("%dx%d", v.Width, v.Height))
	}
	if a := info.Audio; a != nil {
		parts = append(parts, channelLabel(a.Channels))
	}
	switch {
	case info.Duration != nil:
		parts = append(parts, *info.Duration)
	case info.DurationSecs != nil:
		parts = append(parts, formatHMS(*info.DurationSecs))
	}
	if info.Bitrate != nil {
		parts = append(parts, fmt.Sprintf("%d kbps", *info.Bitrate))
	}
	if v := info.Video; v != nil && v.Codec != nil {
		parts = append(parts, strings.ToUpper(*v.Codec))
	}
	if a := info.Audio; a != nil && a.Codec != nil {
		parts = append(parts, strings.ToUpper(*a.Codec))
	}
	if len(parts) == 0 {
		return ""
	}
	return " / " + strings.Join(parts, " / ")
}

func channelLabel(channels uint64) string {
	switch channels {
	case 0:
		return "unknown"
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return "multi"
	}
}
