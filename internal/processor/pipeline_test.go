package processor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/woozymasta/geo3d/internal/feature"
)

func enrichFixture() (*feature.Collection, *feature.Collection) {
	buildings := feature.NewCollection("buildings", []*feature.Feature{
		{
			Geometry: box(18.40, -33.93, 18.41, -33.92),
			Attributes: feature.Attributes{
				"osm_id":          "1",
				"building":        "apartments",
				"building:levels": "3",
				"mean":            "12,5",
				"other_tags":      `"addr:street"=>"Bree Street","addr:housenumber"=>"40"`,
			},
		},
		{
			Geometry: box(18.42, -33.93, 18.43, -33.92),
			Attributes: feature.Attributes{
				"osm_way_id": "2",
				"building":   "roof",
				"other_tags": `"building:levels"=>"2"`,
			},
		},
		{
			Attributes: feature.Attributes{"osm_id": "3", "building": "house"},
		},
	})

	installations := feature.NewCollection("installations", []*feature.Feature{
		{
			Geometry: box(18.401, -33.929, 18.402, -33.928),
			Attributes: feature.Attributes{
				"osm_id":     "10",
				"other_tags": `"generator:method"=>"photovoltaic","power"=>"generator"`,
			},
		},
		{
			Geometry:   box(18.5, -33.9, 18.6, -33.8),
			Attributes: feature.Attributes{"osm_id": "11"},
		},
	})

	return buildings, installations
}

func TestEnrich(t *testing.T) {
	buildings, installations := enrichFixture()

	res, err := Enrich(buildings, installations, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if len(res.Buildings) != 2 || len(res.Installations) != 2 {
		t.Fatalf("Expected 2 buildings and 2 installations, got %d/%d", len(res.Buildings), len(res.Installations))
	}

	first := buildings.Features[0].Attributes
	expected := map[string]any{
		KeyBuildingHeight:  "9.70",
		KeyRoofHeight:      "22.20",
		KeyGroundHeight:    "12.50",
		KeyAddress:         "40 Bree Street",
		KeyFillColor:       []int{252, 194, 3},
		KeyChildren:        []string{"10"},
		KeyMethod:          []string{"photovoltaic"},
		KeyHasInstallation: true,
	}
	for k, want := range expected {
		if got := first[k]; !reflect.DeepEqual(got, want) {
			t.Errorf("building 1 %s = %#v, want %#v", k, got, want)
		}
	}
	if code, _ := first[KeyGridCode].(string); len(code) != 12 || code[8] != '+' {
		t.Errorf("Unexpected grid code %v", first[KeyGridCode])
	}

	second := buildings.Features[1]
	if second.ID != "2" {
		t.Errorf("Expected way id, got %q", second.ID)
	}
	if second.Attributes[KeyBuildingHeight] != nil || second.Attributes[KeyRoofHeight] != "6.90" {
		t.Errorf("Unexpected roof heights %v/%v", second.Attributes[KeyBuildingHeight], second.Attributes[KeyRoofHeight])
	}
	if second.Attributes[KeyChildren] != nil || second.Attributes[KeyHasInstallation] != false {
		t.Errorf("Expected no children, got %v", second.Attributes[KeyChildren])
	}
	if second.Attributes[KeyAddress] != nil {
		t.Errorf("Expected nil address, got %v", second.Attributes[KeyAddress])
	}

	// feature without geometry is left untouched but keeps the full schema
	third := buildings.Features[2].Attributes
	if v, ok := third[KeyBuildingHeight]; !ok || v != nil {
		t.Errorf("Expected registered nil height on empty feature, got %v", v)
	}

	panel := installations.Features[0].Attributes
	if !reflect.DeepEqual(panel[KeyParent], []string{"1"}) {
		t.Errorf("Expected parent [1], got %v", panel[KeyParent])
	}
	if installations.Features[1].Attributes[KeyParent] != nil {
		t.Error("Expected nil parent for free standing installation")
	}
	if res.Installations[0].Method != "photovoltaic" {
		t.Errorf("Expected method from other_tags, got %q", res.Installations[0].Method)
	}

	for _, key := range []string{KeyGridCode, KeyHasInstallation, KeyParent} {
		c := buildings
		if key == KeyParent {
			c = installations
		}
		if !c.HasColumn(key) {
			t.Errorf("Expected column %s registered", key)
		}
	}
}

func TestEnrichWithoutInstallations(t *testing.T) {
	buildings, _ := enrichFixture()

	res, err := Enrich(buildings, nil, Options{})
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if !res.Join.Skipped {
		t.Error("Expected join to be skipped")
	}
	if buildings.Features[0].Attributes[KeyHasInstallation] != false {
		t.Error("Expected has_installation false")
	}
}

type failingUnprojector struct{}

func (failingUnprojector) InversePoint(orb.Point) (orb.Point, error) {
	return orb.Point{}, errors.New("no transform")
}

func TestEnrichProjectionError(t *testing.T) {
	buildings, installations := enrichFixture()

	if _, err := Enrich(buildings, installations, Options{Unprojector: failingUnprojector{}}); err == nil {
		t.Fatal("Expected projection error")
	}
}

func TestNewBuildingDefaults(t *testing.T) {
	c := feature.NewCollection("b", []*feature.Feature{
		{Attributes: feature.Attributes{"building": nil}},
	})
	b := NewBuilding(c, c.Features[0])
	if b.Levels != 1 || b.Category != "house" || b.GroundHeight != 0 || b.MinHeight != 0 {
		t.Errorf("Unexpected defaults %+v", b)
	}

	c = feature.NewCollection("b", []*feature.Feature{
		{Attributes: feature.Attributes{"building:levels": "", "mean": "n/a"}},
	})
	b = NewBuilding(c, c.Features[0])
	if b.Levels != 0 || b.GroundHeight != 0 {
		t.Errorf("Expected empty values coerced to 0, got levels %v ground %v", b.Levels, b.GroundHeight)
	}
}

func TestSummarize(t *testing.T) {
	buildings, installations := enrichFixture()
	res, err := Enrich(buildings, installations, Options{})
	if err != nil {
		t.Fatal(err)
	}

	s := Summarize(res)
	if s.Buildings != 2 || s.Installations != 2 || s.WithInstallation != 1 || s.ContainedInstalled != 1 {
		t.Errorf("Unexpected counts %+v", s)
	}
	if s.Coverage != 0.5 {
		t.Errorf("Expected coverage 0.5, got %v", s.Coverage)
	}
	if s.RoofHeight.Max != 22.2 || s.RoofHeight.Mean != 14.55 {
		t.Errorf("Unexpected roof distribution %+v", s.RoofHeight)
	}

	if empty := Summarize(&Result{}); empty.RoofHeight != (Distribution{}) || empty.Coverage != 0 {
		t.Errorf("Expected zero summary, got %+v", empty)
	}
}
