// Package views holds the embedded HTML templates and the Fiber engine
// that renders them.
package views

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/template/html/v2"
	"github.com/samber/lo"
)

// Layout wraps every page.
const Layout = "layouts/base"

//go:embed templates
var files embed.FS

// New returns a template engine over the embedded templates. Template
// names are paths below templates/ without the extension.
func New() *html.Engine {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(map[string]interface{}{
		"date": func(t time.Time) string { return t.UTC().Format("2 Jan 2006 15:04") },
		"truncate": func(s string, n int) string {
			if len([]rune(s)) <= n {
				return s
			}
			return lo.Substring(s, 0, uint(n)) + "…"
		},
	})
	return engine
}
