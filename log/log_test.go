package log

import (
	"errors"
	"testing"

	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/where"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given logging is disabled", t, func() {
		viper.Set(key.LogsWrite, false)
		So(Setup(), ShouldBeNil)

		Convey("Component entries are still usable", func() {
			entry := With("engine")
			So(entry, ShouldNotBeNil)
			So(func() { entry.WithField("state", "Playing").Info("ignored") }, ShouldNotPanic)
		})

		Convey("Errors are dropped", func() {
			So(func() { Error(errors.New("ignored")) }, ShouldNotPanic)
		})
	})

	Convey("Given logging is enabled", t, func() {
		viper.Set(key.LogsWrite, true)
		viper.Set(key.LogsLevel, "debug")
		defer viper.Set(key.LogsWrite, false)

		So(Setup(), ShouldBeNil)

		Convey("A dated log file is created", func() {
			With("test").Info("hello")
			files, err := filesystem.Siblings(where.Logs())
			So(err, ShouldBeNil)
			So(len(files), ShouldBeGreaterThan, 0)
		})
	})
}
