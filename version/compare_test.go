package version

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		Convey("Orders by major, minor then patch", func() {
			So(must(Compare("1.2.3", "1.2.3")), ShouldEqual, 0)
			So(must(Compare("2.0.0", "1.9.9")), ShouldEqual, 1)
			So(must(Compare("1.2.0", "1.10.0")), ShouldEqual, -1)
			So(must(Compare("1.2.4", "1.2.3")), ShouldEqual, 1)
		})

		Convey("Accepts a v prefix and short versions", func() {
			So(must(Compare("v1.2", "1.2.0")), ShouldEqual, 0)
			So(must(Compare("v2", "1.9.9")), ShouldEqual, 1)
		})

		Convey("Ignores pre-release suffixes", func() {
			So(must(Compare("1.2.3-rc1", "1.2.3")), ShouldEqual, 0)
			So(must(Compare("1.2.3+build.7", "1.2.2")), ShouldEqual, 1)
		})

		Convey("Rejects malformed versions", func() {
			for _, bad := range []string{"", "v", "1.x.3", "1.2.3.4", "-1.0.0"} {
				_, err := Compare(bad, "1.0.0")
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func must(n int, err error) int {
	So(err, ShouldBeNil)
	return n
}
