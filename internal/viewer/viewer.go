// Package viewer renders the self-contained MapLibre page of an area.
package viewer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/paulmach/orb/geojson"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	minjson "github.com/tdewolff/minify/v2/json"
)

// DefaultStyle is the basemap of the viewer.
const DefaultStyle = "https://basemaps.cartocdn.com/gl/dark-matter-gl-style/style.json"

//go:embed assets/index.html.tpl
var indexTemplate string

//go:embed assets/style.css
var styleCSS string

//go:embed assets/script.js
var scriptJS string

var page = template.Must(template.New("index").Parse(indexTemplate))

// Page is the content of one viewer.
type Page struct {
	Title  string
	Style  string
	Center [2]float64
	Zoom   float64

	// Layers are keyed by source name: buildings, installations, farmland,
	// green, water and transit. Missing layers render empty.
	Layers map[string]*geojson.FeatureCollection
}

type pageData struct {
	Title string
	CSS   string
	JS    string
	Data  string
}

type mapData struct {
	Style  string                                `json:"style"`
	Center [2]float64                            `json:"center"`
	Zoom   float64                               `json:"zoom"`
	Layers map[string]*geojson.FeatureCollection `json:"layers"`
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("application/json", minjson.Minify)
	return m
}

// Render builds the minified HTML page with the layers inlined.
func Render(p Page) ([]byte, error) {
	m := newMinifier()

	cssMin, err := m.String("text/css", styleCSS)
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}
	jsMin, err := m.String("text/javascript", scriptJS)
	if err != nil {
		return nil, fmt.Errorf("minify js: %w", err)
	}

	d := mapData{Style: p.Style, Center: p.Center, Zoom: p.Zoom, Layers: p.Layers}
	if d.Style == "" {
		d.Style = DefaultStyle
	}
	if d.Zoom <= 0 {
		d.Zoom = 16
	}
	if d.Layers == nil {
		d.Layers = map[string]*geojson.FeatureCollection{}
	}

	// json.Marshal escapes <, > and &, the payload cannot close the script element
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode layers: %w", err)
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, pageData{
		Title: template.HTMLEscapeString(p.Title),
		CSS:   cssMin,
		JS:    jsMin,
		Data:  string(data),
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify html: %w", err)
	}

	return out, nil
}

// Write renders the page into path.
func Write(path string, p Page) error {
	out, err := Render(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
