package where

import (
	"path/filepath"
	"testing"

	"github.com/playengine/playengine/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPaths(t *testing.T) {
	filesystem.SetMemMapFs()
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "config"))

	Convey("Given a config path override", t, func() {
		config := Config()

		Convey("Config uses it and creates it", func() {
			So(config, ShouldEndWith, "config")
			So(lo.Must(filesystem.API().IsDir(config)), ShouldBeTrue)
		})

		Convey("Logs and resolvers live under it", func() {
			for _, dir := range []string{Logs(), Resolvers()} {
				So(filepath.Dir(dir), ShouldEqual, config)
				So(lo.Must(filesystem.API().IsDir(dir)), ShouldBeTrue)
			}
		})

		Convey("History is a file that is not created eagerly", func() {
			So(History(), ShouldEqual, filepath.Join(config, "history.json"))
			So(lo.Must(filesystem.API().Exists(History())), ShouldBeFalse)
		})

		Convey("Snapshots live in the temporary directory", func() {
			So(filepath.Dir(Snapshots()), ShouldEqual, Temp())
			So(lo.Must(filesystem.API().IsDir(Snapshots())), ShouldBeTrue)
		})

		Convey("Cache is created", func() {
			So(lo.Must(filesystem.API().IsDir(Cache())), ShouldBeTrue)
		})
	})
}
