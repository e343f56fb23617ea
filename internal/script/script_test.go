package script

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/playengine/playengine/filesystem"
	. "github.com/smartystreets/goconvey/convey"
	lua "github.com/yuin/gopher-lua"
)

const resolver = `-- @name    Example
-- @pattern example.com
-- @author  someone
--------------------

function Resolve(url)
	return { url = url .. "/video.mp4", title = "Example", headers = { Referer = url } }
end
`

func TestMeta(t *testing.T) {
	Convey("Script headers", t, func() {
		meta := ParseMeta([]byte(resolver))
		So(meta, ShouldResemble, Meta{Name: "Example", Pattern: "example.com", Author: "someone"})

		So(ParseMeta([]byte("print(1)\n-- @name late")), ShouldResemble, Meta{})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given scripts on an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		path := filepath.Join("/scripts", "example.lua")
		So(filesystem.API().WriteFile(path, []byte(resolver), 0o644), ShouldBeNil)

		Convey("A script loads and its functions can be called", func() {
			s, err := Load(path)
			So(err, ShouldBeNil)
			defer s.Close()

			So(s.Meta.Name, ShouldEqual, "Example")
			So(s.Defines("Resolve"), ShouldBeTrue)
			So(s.Defines("Search"), ShouldBeFalse)

			s.Lock()
			ret, err := s.Call("Resolve", lua.LString("https://example.com/p"))
			s.Unlock()
			So(err, ShouldBeNil)

			tbl, ok := ret.(*lua.LTable)
			So(ok, ShouldBeTrue)
			So(StringField(tbl, "url"), ShouldEqual, "https://example.com/p/video.mp4")
			So(StringMap(tbl, "headers"), ShouldResemble, map[string]string{"Referer": "https://example.com/p"})
			So(StringMap(tbl, "missing"), ShouldBeNil)
		})

		Convey("Calling an undefined function fails", func() {
			s, err := Load(path)
			So(err, ShouldBeNil)
			defer s.Close()

			_, err = s.Call("Search")
			So(err, ShouldNotBeNil)
		})

		Convey("Scripts without a name header are named after the file", func() {
			other := filepath.Join("/scripts", "plain.lua")
			So(filesystem.API().WriteFile(other, []byte("x = 1"), 0o644), ShouldBeNil)
			s, err := Load(other)
			So(err, ShouldBeNil)
			defer s.Close()
			So(s.Meta.Name, ShouldEqual, "plain")
		})

		Convey("Syntax errors are reported", func() {
			broken := filepath.Join("/scripts", "broken.lua")
			So(filesystem.API().WriteFile(broken, []byte("function ("), 0o644), ShouldBeNil)
			_, err := Load(broken)
			So(err, ShouldNotBeNil)
		})

		Convey("Runtime errors at top level are reported", func() {
			failing := filepath.Join("/scripts", "failing.lua")
			So(filesystem.API().WriteFile(failing, []byte("error('nope')"), 0o644), ShouldBeNil)
			_, err := Load(failing)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestInstall(t *testing.T) {
	Convey("Given a server hosting a script", t, func() {
		filesystem.SetMemMapFs()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/example.lua" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(resolver))
		}))
		Reset(server.Close)

		Convey("The first install writes the file, the second is a no-op", func() {
			path, changed, err := Install(context.Background(), server.URL+"/example.lua", "/resolvers")
			So(err, ShouldBeNil)
			So(changed, ShouldBeTrue)
			So(path, ShouldEqual, filepath.Join("/resolvers", "example.lua"))

			data, err := filesystem.API().ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, resolver)

			_, changed, err = Install(context.Background(), server.URL+"/example.lua", "/resolvers")
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
		})

		Convey("Missing scripts fail", func() {
			_, _, err := Install(context.Background(), server.URL+"/missing.lua", "/resolvers")
			So(err, ShouldNotBeNil)
		})

		Convey("Only lua files are accepted", func() {
			_, _, err := Install(context.Background(), server.URL+"/index.html", "/resolvers")
			So(err, ShouldNotBeNil)
		})
	})
}
