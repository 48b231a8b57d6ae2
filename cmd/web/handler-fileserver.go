package main

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// resolveStaticPath prefers ui/static below the working directory, where deployments run from, and falls back to the
// module root.
func resolveStaticPath() (string, error) {
	configured := filepath.Join("ui", "static")
	if stat, err := os.Stat(configured); err != nil || !stat.IsDir() {
		configured = ""
	}
	return resolveUIPath(configured, "static", "main.css")
}

// fileServerHandler serves ui/static and renders the not found page for everything else.
func (app *application) fileServerHandler(notFound http.Handler) (http.Handler, error) {
	fileRoot, err := resolveStaticPath()
	if err != nil {
		return nil, err
	}
	fileServer := cacheForever(http.FileServer(http.Dir(fileRoot)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := filepath.Clean(r.URL.Path)
		if strings.Contains(cleanPath, "..") {
			notFound.ServeHTTP(w, r)
			return
		}
		stat, statErr := os.Stat(filepath.Join(fileRoot, cleanPath))
		if statErr != nil || stat.IsDir() {
			notFound.ServeHTTP(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	}), nil
}
