// Package server serves the enriched areas over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/geo3d/internal/export"
)

const etagCap = 64

// areaFiles are the files served from an area directory.
var areaFiles = map[string]string{
	export.BuildingsFile:     "application/geo+json",
	export.InstallationsFile: "application/geo+json",
	export.ManifestFile:      "application/json",
	export.ViewerFile:        "text/html; charset=utf-8",
}

// HandleAreasList serves the list of exported areas with their manifests.
func (s *ServerContext) HandleAreasList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	areas := s.Areas
	if areas == nil {
		areas = []Area{}
	}
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(areas)
}

// HandleIndex redirects to the viewer of the first area.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || len(s.Areas) == 0 {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, s.Areas[0].Viewer, http.StatusFound)
}

// HandleAreaFile serves the exported files of an area.
func (s *ServerContext) HandleAreaFile(w http.ResponseWriter, r *http.Request) {
	// Path: /areas/{area}/{file}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 2 {
		http.Redirect(w, r, r.URL.Path+"/"+export.ViewerFile, http.StatusFound)
		return
	}
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	dir, ok := s.dirs[parts[1]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	// allow only known files to prevent path probing
	contentType, ok := areaFiles[parts[2]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if !s.serveFile(w, r, filepath.Join(dir, parts[2]), contentType) {
		http.NotFound(w, r)
	}
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	w.Header().Set("Content-Type", contentType)

	// ServeFile would redirect index.html requests to the directory
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
