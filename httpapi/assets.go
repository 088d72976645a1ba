package httpapi

import (
	"embed"
	"io/fs"
	"net/http"
	"time"
)

//go:embed assets/index.html assets/app.js assets/style.css
var embeddedAssets embed.FS

// webAssets is the browser client rooted at the assets directory.
var webAssets = mustSub(embeddedAssets, "assets")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func assetHandler() http.Handler {
	return http.StripPrefix("/assets/", http.FileServer(http.FS(webAssets)))
}

// indexPage returns the index document and its modification time.
func indexPage() ([]byte, time.Time, error) {
	data, err := fs.ReadFile(webAssets, "index.html")
	if err != nil {
		return nil, time.Time{}, err
	}
	stat, err := fs.Stat(webAssets, "index.html")
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, stat.ModTime(), nil
}
