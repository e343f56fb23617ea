// Package mrl identifies the media resource a playback session is built around.
package mrl

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/playengine/playengine/stream"
	"github.com/playengine/playengine/util"
	"github.com/samber/lo"
)

// Scheme identifies how a Locator is opened.
type Scheme string

const (
	File   Scheme = "file"
	HTTP   Scheme = "http"
	HTTPS  Scheme = "https"
	DVD    Scheme = "dvd"
	BluRay Scheme = "bluray"
)

var (
	ErrEmpty   = errors.New("empty locator")
	ErrControl = errors.New("locator contains control characters")
	ErrFlag    = errors.New("locator must not start with '-'")
)

var discPattern = regexp.MustCompile(`^(?P<scheme>dvd|bluray)://(?P<title>\d*)(?:/(?P<device>.*))?$`)

// Locator identifies a media resource plus disc qualifiers.
// It is a value type; every modifier returns a copy.
type Locator struct {
	raw     string
	scheme  Scheme
	path    string
	device  string
	title   int
	name    string
	headers map[string]string
}

// Parse builds a Locator from user input, a path or a URL.
func Parse(raw string) (Locator, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Locator{}, ErrEmpty
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return Locator{}, ErrControl
	}
	if strings.HasPrefix(s, "-") {
		return Locator{}, ErrFlag
	}

	if groups := util.ReGroups(discPattern, s); len(groups) > 0 {
		loc := Locator{raw: s, scheme: Scheme(groups["scheme"]), device: groups["device"], title: -1}
		if t := groups["title"]; t != "" {
			n, err := strconv.Atoi(t)
			if err != nil {
				return Locator{}, fmt.Errorf("disc title %q: %w", t, err)
			}
			loc.title = n
		}
		return loc, nil
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return Locator{}, fmt.Errorf("invalid url: %w", err)
		}
		scheme := Scheme(strings.ToLower(u.Scheme))
		if scheme == File {
			return Locator{raw: s, scheme: File, path: filepath.Clean(u.Path)}, nil
		}
		return Locator{raw: s, scheme: scheme, path: u.Path}, nil
	}

	return Locator{raw: s, scheme: File, path: filepath.Clean(s)}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(raw string) Locator {
	return lo.Must(Parse(raw))
}

func (l Locator) Scheme() Scheme { return l.scheme }

// IsZero reports whether the locator was never parsed.
func (l Locator) IsZero() bool { return l.raw == "" }

func (l Locator) IsLocalFile() bool { return l.scheme == File }

func (l Locator) IsDisc() bool { return l.scheme == DVD || l.scheme == BluRay }

// IsStream reports whether the locator is neither a local file nor a disc.
func (l Locator) IsStream() bool { return !l.IsZero() && !l.IsLocalFile() && !l.IsDisc() }

// IsDirect reports whether the locator can be handed to the backend without resolution:
// local files, discs, and stream URLs that name a media file.
func (l Locator) IsDirect() bool {
	if !l.IsStream() {
		return !l.IsZero()
	}
	_, ok := stream.Classify(l.path)
	return ok || strings.HasSuffix(strings.ToLower(l.path), ".m3u8") || strings.HasSuffix(strings.ToLower(l.path), ".mpd")
}

// Path is the local path for files, the URL path for streams and the device for discs.
func (l Locator) Path() string {
	if l.IsDisc() {
		return l.device
	}
	return l.path
}

// Title is the disc title qualifier, -1 when unspecified.
func (l Locator) Title() int { return l.title }

// Dir is the directory holding a local file, empty otherwise.
func (l Locator) Dir() string {
	if !l.IsLocalFile() {
		return ""
	}
	return filepath.Dir(l.path)
}

// Stem is the base filename without extension.
func (l Locator) Stem() string {
	if l.IsDisc() {
		return string(l.scheme)
	}
	return util.FileStem(l.path)
}

// Name is the human label: the resolved title if any, otherwise the base filename.
func (l Locator) Name() string {
	if l.name != "" {
		return l.name
	}
	if l.IsDisc() {
		return strings.ToUpper(string(l.scheme))
	}
	if base := filepath.Base(l.path); base != "." && base != "/" {
		return base
	}
	return l.raw
}

// Label is the display title given by a resolver, empty if none was.
func (l Locator) Label() string { return l.name }

// Headers returns a copy of HTTP headers the backend must send for this locator.
func (l Locator) Headers() map[string]string {
	if len(l.headers) == 0 {
		return nil
	}
	return lo.Assign(l.headers)
}

// WithName returns a copy labelled with a display title.
func (l Locator) WithName(name string) Locator {
	l.name = strings.TrimSpace(name)
	return l
}

// WithHeaders returns a copy carrying HTTP headers.
func (l Locator) WithHeaders(headers map[string]string) Locator {
	if len(headers) == 0 {
		l.headers = nil
		return l
	}
	l.headers = lo.Assign(headers)
	return l
}

// Key is the identity under which history is stored.
func (l Locator) Key() string {
	if l.IsLocalFile() {
		if abs, err := filepath.Abs(l.path); err == nil {
			return string(File) + "://" + abs
		}
	}
	return l.raw
}

// Equal compares identity, ignoring labels and headers.
func (l Locator) Equal(other Locator) bool {
	return l.Key() == other.Key()
}

// String renders the locator the way the backend expects to receive it.
func (l Locator) String() string {
	switch {
	case l.IsDisc():
		var b strings.Builder
		b.WriteString(string(l.scheme) + "://")
		if l.title >= 0 {
			b.WriteString(strconv.Itoa(l.title))
		}
		if l.device != "" {
			b.WriteString("/" + l.device)
		}
		return b.String()
	case l.IsLocalFile():
		return l.path
	default:
		return l.raw
	}
}
