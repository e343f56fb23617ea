// Package autoload discovers sibling track files for a media locator, ranks them
// against the tracks embedded in the media and picks a default per stream type.
package autoload

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/playengine/playengine/charset"
	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/util"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Options configure one stream type's autoloader.
type Options struct {
	Enabled bool
	Mode    Mode
	// Select allows an external candidate to become the default selection.
	Select bool
	// AllowNone lets the type stay unselected when nothing was chosen before.
	AllowNone bool
	// Encoding is the fallback subtitle encoding.
	Encoding   string
	Autodetect bool
}

// Candidate is a sibling file that may be loaded as a track.
type Candidate struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Tier     Tier   `json:"tier"`
	Lang     string `json:"lang,omitempty"`
	LangRank int    `json:"lang_rank"`
	Distance int    `json:"distance"`
	Encoding string `json:"encoding,omitempty"`
}

// Track describes the candidate as an external track, before the backend assigns an id.
func (c Candidate) Track() stream.Track {
	return stream.Track{
		Title:    c.Name,
		Lang:     c.Lang,
		External: true,
		File:     c.Path,
		Encoding: c.Encoding,
	}
}

// Autoloader finds candidates of one stream type.
type Autoloader struct {
	desc stream.Descriptor
	opts Options

	mu    sync.Mutex
	cache map[string][]Candidate
}

// New creates an autoloader for the descriptor's stream type.
func New(desc stream.Descriptor, opts Options) *Autoloader {
	return &Autoloader{
		desc:  desc,
		opts:  opts,
		cache: make(map[string][]Candidate),
	}
}

func (a *Autoloader) Descriptor() stream.Descriptor { return a.desc }

func (a *Autoloader) Options() Options { return a.opts }

// Forget drops every cached candidate list.
func (a *Autoloader) Forget() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[string][]Candidate)
}

// Candidates lists ranked sibling files of a local locator. Streams and discs have none.
// Unreadable subtitle files are skipped with a warning.
func (a *Autoloader) Candidates(loc mrl.Locator) ([]Candidate, error) {
	if !a.opts.Enabled || !loc.IsLocalFile() {
		return nil, nil
	}

	dir, stem := loc.Dir(), loc.Stem()
	cacheKey := filepath.Join(dir, stem)

	a.mu.Lock()
	if cached, ok := a.cache[cacheKey]; ok {
		a.mu.Unlock()
		return slices.Clone(cached), nil
	}
	a.mu.Unlock()

	files, err := filesystem.Siblings(dir)
	if err != nil {
		return nil, err
	}

	logger := log.With("autoload").WithField("type", a.desc.Type.String())
	self := filepath.Base(loc.Path())

	var candidates []Candidate
	for _, file := range files {
		name := file.Name()
		if name == self || !a.desc.Ext.Matches(name) {
			continue
		}

		candStem := util.FileStem(name)
		tier := tierOf(stem, candStem)
		if !a.opts.Mode.Accepts(tier) {
			continue
		}

		c := Candidate{
			Path: filepath.Join(dir, name),
			Name: name,
			Tier: tier,
		}
		c.Lang, c.LangRank = language(stem, candStem, a.desc.Priority)
		if tier == TierFuzzy {
			c.Distance = distance(stem, candStem)
		}

		if a.desc.Type == stream.Subtitle {
			result, err := charset.DetectFile(c.Path, a.opts.Encoding, a.opts.Autodetect)
			if err != nil {
				logger.WithError(err).Warnf("skipping %s", name)
				continue
			}
			c.Encoding = result.Name
		}

		candidates = append(candidates, c)
	}

	Sort(candidates)

	a.mu.Lock()
	a.cache[cacheKey] = candidates
	a.mu.Unlock()

	logger.Debugf("found %d candidates for %s", len(candidates), self)
	return slices.Clone(candidates), nil
}

// Sort orders candidates by tier, then language priority, then fuzzy distance,
// then filename. The filename order makes equal ranks reproducible.
func Sort(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(x, y Candidate) int {
		return compare(rankOf(x), rankOf(y))
	})
}

type rank struct {
	tier     Tier
	lang     int
	embedded bool
	distance int
	seq      int
	name     string
}

func rankOf(c Candidate) rank {
	return rank{tier: c.Tier, lang: c.LangRank, distance: c.Distance, name: c.Name}
}

func compare(x, y rank) int {
	switch {
	case x.tier != y.tier:
		return int(x.tier) - int(y.tier)
	case x.lang != y.lang:
		return x.lang - y.lang
	case x.embedded != y.embedded:
		if x.embedded {
			return -1
		}
		return 1
	case x.distance != y.distance:
		return x.distance - y.distance
	case x.seq != y.seq:
		return x.seq - y.seq
	default:
		return strings.Compare(x.name, y.name)
	}
}

// Merge builds the inclusive track list: embedded tracks and candidates in one order.
// Embedded tracks rank as exact matches and win ties against external files; among
// themselves they keep the backend's order. External tracks the backend already knows
// keep their ids, and ones no candidate explains go last.
func Merge(reported []stream.Track, candidates []Candidate, priority []string) []stream.Track {
	type entry struct {
		track stream.Track
		rank  rank
	}

	entries := make([]entry, 0, len(reported)+len(candidates))
	for i, t := range reported {
		if t.External {
			continue
		}
		entries = append(entries, entry{
			track: t,
			rank:  rank{tier: TierExact, lang: langRank(t.Lang, priority), embedded: true, seq: i},
		})
	}

	externals := lo.SliceToMap(
		lo.Filter(reported, func(t stream.Track, _ int) bool { return t.External }),
		func(t stream.Track) (string, stream.Track) { return t.Key(), t },
	)

	for _, c := range candidates {
		t := c.Track()
		if prev, ok := externals[t.Key()]; ok {
			t.ID, t.Codec = prev.ID, prev.Codec
			delete(externals, t.Key())
		}
		entries = append(entries, entry{track: t, rank: rankOf(c)})
	}

	for i, t := range reported {
		if _, ok := externals[t.Key()]; !ok {
			continue
		}
		entries = append(entries, entry{
			track: t,
			rank:  rank{tier: TierOther + 1, lang: langRank(t.Lang, priority), seq: i},
		})
	}

	slices.SortStableFunc(entries, func(x, y entry) int { return compare(x.rank, y.rank) })

	return lo.Map(entries, func(e entry, _ int) stream.Track { return e.track })
}

func logFailure(t stream.Type, loc mrl.Locator, err error) {
	log.With("autoload").
		WithField("type", t.String()).
		WithError(err).
		Warnf("listing siblings of %s", loc.Name())
}
