package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func serve(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestEmbeddedPlaceholder(t *testing.T) {
	Convey("Given no static directory", t, func() {
		root, err := FS("")
		So(err, ShouldBeNil)
		r := chi.NewRouter()
		Register(context.Background(), r, root)

		Convey("The placeholder page is served at / and for client routes", func() {
			for _, target := range []string{"/", "/dashboard", "/students/12"} {
				w := serve(r, target)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "static_dir")
			}
		})
	})
}

func TestStaticDirectory(t *testing.T) {
	Convey("Given a built front end on disk", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o600), ShouldBeNil)
		So(os.MkdirAll(filepath.Join(dir, "assets"), 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o600), ShouldBeNil)

		root, err := FS(dir)
		So(err, ShouldBeNil)
		r := chi.NewRouter()
		Register(context.Background(), r, root)

		Convey("Assets are served as files", func() {
			w := serve(r, "/assets/app.js")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "console.log(1)")
		})

		Convey("Unknown paths and directories fall back to index.html", func() {
			So(serve(r, "/upload").Body.String(), ShouldEqual, "<html>app</html>")
			So(serve(r, "/assets/").Body.String(), ShouldEqual, "<html>app</html>")
		})
	})

	Convey("A directory without index.html is rejected", t, func() {
		_, err := FS(t.TempDir())
		So(errors.Is(err, ErrNoIndex), ShouldBeTrue)
	})
}
