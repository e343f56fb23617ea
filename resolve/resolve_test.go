package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/internal/cache"
	"github.com/playengine/playengine/mrl"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeResolver struct {
	name     string
	supports bool
	result   string
	err      error
	calls    int
}

func (f *fakeResolver) Name() string { return f.name }

func (f *fakeResolver) Supports(mrl.Locator) bool { return f.supports }

func (f *fakeResolver) Resolve(_ context.Context, loc mrl.Locator) (mrl.Locator, error) {
	f.calls++
	if f.err != nil {
		return mrl.Locator{}, f.err
	}
	return mrl.MustParse(f.result).WithName(f.name + " title"), nil
}

func TestChain(t *testing.T) {
	Convey("Given a chain of resolvers", t, func() {
		filesystem.SetMemMapFs()
		page := mrl.MustParse("https://example.com/watch?v=1")

		skipped := &fakeResolver{name: "skipped", supports: false, result: "https://wrong/a.mp4"}
		failing := &fakeResolver{name: "failing", supports: true, err: errors.New("boom")}
		working := &fakeResolver{name: "working", supports: true, result: "https://cdn.example.com/v.m3u8"}
		later := &fakeResolver{name: "later", supports: true, result: "https://later/b.mp4"}

		Convey("The first supporting resolver that succeeds wins", func() {
			chain := NewChain(nil, skipped, failing, working, later)
			out, err := chain.Resolve(context.Background(), page)
			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, "https://cdn.example.com/v.m3u8")
			So(out.Name(), ShouldEqual, "working title")
			So(skipped.calls, ShouldEqual, 0)
			So(failing.calls, ShouldEqual, 1)
			So(later.calls, ShouldEqual, 0)
		})

		Convey("Failures name the resolver", func() {
			chain := NewChain(nil, failing)
			_, err := chain.Resolve(context.Background(), page)

			var re *ResolutionError
			So(errors.As(err, &re), ShouldBeTrue)
			So(re.Resolver, ShouldEqual, "failing")
			So(re.Error(), ShouldContainSubstring, "boom")
		})

		Convey("Several failures are all reported", func() {
			other := &fakeResolver{name: "other", supports: true, err: errors.New("bang")}
			_, err := NewChain(nil, failing, other).Resolve(context.Background(), page)
			So(err.Error(), ShouldContainSubstring, "boom")
			So(err.Error(), ShouldContainSubstring, "bang")
		})

		Convey("Nothing supporting the locator is an unsupported error", func() {
			_, err := NewChain(nil, skipped).Resolve(context.Background(), page)
			So(errors.Is(err, ErrUnsupported), ShouldBeTrue)
			So(NewChain(nil, skipped).Supports(page), ShouldBeFalse)
		})

		Convey("Empty locators are rejected", func() {
			_, err := NewChain(nil, working).Resolve(context.Background(), mrl.Locator{})
			So(errors.Is(err, mrl.ErrEmpty), ShouldBeTrue)
		})

		Convey("Results are cached", func() {
			chain := NewChain(cache.New("resolved-test", time.Hour), working)

			first, err := chain.Resolve(context.Background(), page)
			So(err, ShouldBeNil)
			second, err := chain.Resolve(context.Background(), page)
			So(err, ShouldBeNil)

			So(working.calls, ShouldEqual, 1)
			So(second.String(), ShouldEqual, first.String())
			So(second.Name(), ShouldEqual, "working title")
		})

		Convey("Direct locators pass through", func() {
			local := mrl.MustParse("/media/movie.mkv")
			out, err := NewChain(nil, Direct{}).Resolve(context.Background(), local)
			So(err, ShouldBeNil)
			So(out.Equal(local), ShouldBeTrue)
			So(Direct{}.Supports(page), ShouldBeFalse)
		})
	})
}

func TestProbe(t *testing.T) {
	Convey("Given an HTTP server", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "video/mp4")
		})
		mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl; charset=utf-8")
		})
		mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		})
		mux.HandleFunc("/get-only", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "audio/ogg")
		})
		mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/stream", http.StatusFound)
		})
		mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Referer") != "https://example.com" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "video/webm")
		})
		server := httptest.NewServer(mux)
		Reset(server.Close)

		probe := &Probe{Client: server.Client()}
		resolve := func(path string) (mrl.Locator, error) {
			return probe.Resolve(context.Background(), mrl.MustParse(server.URL+path))
		}

		Convey("Media content types are accepted", func() {
			_, err := resolve("/stream")
			So(err, ShouldBeNil)
			_, err = resolve("/live")
			So(err, ShouldBeNil)
		})

		Convey("Pages are not media", func() {
			_, err := resolve("/page")
			So(errors.Is(err, ErrNotMedia), ShouldBeTrue)
		})

		Convey("Servers refusing HEAD are asked with GET", func() {
			_, err := resolve("/get-only")
			So(err, ShouldBeNil)
		})

		Convey("Redirects resolve to the final url", func() {
			out, err := resolve("/moved")
			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, server.URL+"/stream")
		})

		Convey("Locator headers are sent", func() {
			_, err := resolve("/private")
			So(err, ShouldNotBeNil)

			loc := mrl.MustParse(server.URL + "/private").WithHeaders(map[string]string{"Referer": "https://example.com"})
			_, err = probe.Resolve(context.Background(), loc)
			So(err, ShouldBeNil)
		})

		Convey("Only http locators are probed", func() {
			So(probe.Supports(mrl.MustParse(server.URL+"/page")), ShouldBeTrue)
			So(probe.Supports(mrl.MustParse("/local/file.mkv")), ShouldBeFalse)
		})
	})
}

func TestYtDlp(t *testing.T) {
	Convey("Given yt-dlp output", t, func() {
		page := mrl.MustParse("https://video.example.com/watch?v=abc")
		var gotArgs []string
		y := &YtDlp{Path: "yt-dlp"}
		respond := func(out string, err error) {
			y.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
				gotArgs = args
				return []byte(out), err
			}
		}

		Convey("A single url with title and headers", func() {
			respond(`{"title":"A talk","url":"https://cdn.example.com/a.mp4","http_headers":{"User-Agent":"yt"}}`, nil)
			out, err := y.Resolve(context.Background(), page)
			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, "https://cdn.example.com/a.mp4")
			So(out.Name(), ShouldEqual, "A talk")
			So(out.Headers(), ShouldResemble, map[string]string{"User-Agent": "yt"})
			So(gotArgs, ShouldResemble, []string{"-J", "--no-playlist", "--no-warnings", "--", page.String()})
		})

		Convey("Merged formats fall back to the video format", func() {
			respond(`{"title":"Merged","requested_formats":[
				{"url":"https://cdn/audio.m4a","vcodec":"none"},
				{"url":"https://cdn/video.mp4","vcodec":"avc1"}]}`, nil)
			out, err := y.Resolve(context.Background(), page)
			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, "https://cdn/video.mp4")
		})

		Convey("Playlists are refused", func() {
			respond(`{"_type":"playlist","title":"List"}`, nil)
			_, err := y.Resolve(context.Background(), page)
			So(err, ShouldNotBeNil)
		})

		Convey("Output without urls is an error", func() {
			respond(`{"title":"Nothing"}`, nil)
			_, err := y.Resolve(context.Background(), page)
			So(err, ShouldNotBeNil)
		})

		Convey("Process failures are returned", func() {
			respond("", errors.New("exit status 1: Unsupported URL"))
			_, err := y.Resolve(context.Background(), page)
			So(err.Error(), ShouldContainSubstring, "Unsupported URL")
		})

		Convey("Local files are never sent to yt-dlp", func() {
			So(y.Supports(mrl.MustParse("/media/a.mkv")), ShouldBeFalse)
			So((&YtDlp{}).Supports(page), ShouldBeFalse)
		})
	})
}

func TestLua(t *testing.T) {
	Convey("Given resolver scripts", t, func() {
		filesystem.SetMemMapFs()
		dir := "/resolvers"
		write := func(name, body string) {
			So(filesystem.API().WriteFile(filepath.Join(dir, name), []byte(body), 0o644), ShouldBeNil)
		}

		write("a_table.lua", `-- @name Tables
-- @pattern tables.example
function Resolve(url)
	if string.find(url, "skip", 1, true) then
		return nil
	end
	return { url = "https://cdn.example.com/t.m3u8", title = "From table", headers = { Referer = url } }
end
`)
		write("b_string.lua", `-- @pattern strings.example
function Resolve(url)
	return "https://cdn.example.com/s.mp4"
end
`)
		write("c_missing.lua", `function Other() end`)
		write("d_failing.lua", `-- @pattern failing.example
function Resolve(url)
	error("scraper broke")
end
`)
		write("notes.txt", "not a script")

		l := NewLua(dir)
		Reset(l.Close)

		Convey("Only scripts defining Resolve are loaded, in name order", func() {
			names := []string{}
			for _, s := range l.Scripts() {
				names = append(names, s.Meta.Name)
			}
			So(names, ShouldResemble, []string{"Tables", "b_string", "d_failing"})
			So(l.Errors(), ShouldHaveLength, 1)
		})

		Convey("Patterns decide support", func() {
			So(l.Supports(mrl.MustParse("https://tables.example/v/1")), ShouldBeTrue)
			So(l.Supports(mrl.MustParse("https://unknown.example/v/1")), ShouldBeFalse)
			So(l.Supports(mrl.MustParse("/local/tables.example.mkv")), ShouldBeFalse)
		})

		Convey("A table result carries title and headers", func() {
			page := mrl.MustParse("https://tables.example/v/1")
			out, err := l.Resolve(context.Background(), page)
			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, "https://cdn.example.com/t.m3u8")
			So(out.Name(), ShouldEqual, "From table")
			So(out.Headers(), ShouldResemble, map[string]string{"Referer": page.String()})
		})

		Convey("A string result is the url", func() {
			out, err := l.Resolve(context.Background(), mrl.MustParse("https://strings.example/x"))
			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, "https://cdn.example.com/s.mp4")
		})

		Convey("Declining scripts leave the locator unsupported", func() {
			_, err := l.Resolve(context.Background(), mrl.MustParse("https://tables.example/skip"))
			So(errors.Is(err, ErrUnsupported), ShouldBeTrue)
		})

		Convey("Script errors are reported", func() {
			_, err := l.Resolve(context.Background(), mrl.MustParse("https://failing.example/x"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "scraper broke")
		})
	})
}
