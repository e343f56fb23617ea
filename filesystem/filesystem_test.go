package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			fs := API()
			So(fs, ShouldNotBeNil)
			So(fs.Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			fs := API()
			So(fs, ShouldNotBeNil)
			So(fs.Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestSiblings(t *testing.T) {
	Convey("Given a directory with files and a subdirectory", t, func() {
		SetMemMapFs()
		So(API().WriteFile("/media/movie.mkv", []byte("x"), 0o644), ShouldBeNil)
		So(API().WriteFile("/media/movie.srt", []byte("x"), 0o644), ShouldBeNil)
		So(API().MkdirAll("/media/extras", 0o755), ShouldBeNil)

		Convey("Siblings returns only regular files", func() {
			files, err := Siblings("/media")
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 2)
		})

		Convey("IsRegular distinguishes files from directories", func() {
			So(IsRegular("/media/movie.srt"), ShouldBeTrue)
			So(IsRegular("/media/extras"), ShouldBeFalse)
			So(IsRegular("/media/missing.ass"), ShouldBeFalse)
		})
	})
}
