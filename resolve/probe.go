package resolve

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/playengine/playengine/mrl"
	"github.com/samber/lo"
)

var manifestTypes = []string{
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/dash+xml",
	"application/octet-stream",
}

// Probe asks an HTTP server what a URL serves and accepts it when it is media.
type Probe struct {
	Client *http.Client
}

func (*Probe) Name() string { return "probe" }

func (*Probe) Supports(loc mrl.Locator) bool {
	return loc.Scheme() == mrl.HTTP || loc.Scheme() == mrl.HTTPS
}

func (p *Probe) Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error) {
	resp, err := p.do(ctx, http.MethodHead, loc)
	if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Body.Close()
		resp, err = p.do(ctx, http.MethodGet, loc)
	}
	if err != nil {
		return mrl.Locator{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mrl.Locator{}, fmt.Errorf("%s: %s", loc.String(), resp.Status)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !isMedia(mediaType) {
		return mrl.Locator{}, fmt.Errorf("%w: %q", ErrNotMedia, resp.Header.Get("Content-Type"))
	}

	if final := resp.Request.URL.String(); final != loc.String() {
		redirected, err := mrl.Parse(final)
		if err == nil {
			return redirected.WithName(loc.Label()).WithHeaders(loc.Headers()), nil
		}
	}
	return loc, nil
}

func (p *Probe) do(ctx context.Context, method string, loc mrl.Locator) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, loc.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range loc.Headers() {
		req.Header.Set(k, v)
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

func isMedia(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	return strings.HasPrefix(mediaType, "video/") ||
		strings.HasPrefix(mediaType, "audio/") ||
		lo.Contains(manifestTypes, mediaType)
}
