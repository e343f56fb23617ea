package cache

import (
	"testing"
	"time"

	"github.com/playengine/playengine/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

type document struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func TestStore(t *testing.T) {
	Convey("Given a cache store on an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		s := New("test", time.Hour)

		Convey("Keys are stable and case-insensitive", func() {
			So(Key("https://a/B", "ytdlp"), ShouldEqual, Key("https://a/b", "YtDlp"))
			So(Key("a", "bc"), ShouldNotEqual, Key("ab", "c"))
		})

		Convey("A written document can be read back", func() {
			So(s.Write("k", document{URL: "https://cdn/x.mp4", Title: "X"}), ShouldBeNil)

			var got document
			So(s.Read("k", &got), ShouldBeTrue)
			So(got.Title, ShouldEqual, "X")
		})

		Convey("Missing documents are misses", func() {
			var got document
			So(s.Read("missing", &got), ShouldBeFalse)
		})

		Convey("Expired documents are misses and get collected", func() {
			So(s.Write("k", document{URL: "u"}), ShouldBeNil)
			s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

			var got document
			So(s.Read("k", &got), ShouldBeFalse)
			So(s.CollectGarbage(), ShouldEqual, 1)

			s.now = time.Now
			So(s.Read("k", &got), ShouldBeFalse)
		})

		Convey("Deleted documents are gone", func() {
			So(s.Write("k", document{URL: "u"}), ShouldBeNil)
			s.Delete("k")
			var got document
			So(s.Read("k", &got), ShouldBeFalse)
		})
	})
}
