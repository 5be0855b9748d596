package model

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"
)

// Destination is one known destination in the reference registry.
// BBox is [minLon, minLat, maxLon, maxLat].
type Destination struct {
	ID            string     `yaml:"id"`
	Name          string     `yaml:"name"`
	Preposition   string     `yaml:"preposition"`
	Region        string     `yaml:"region,omitempty"`
	LanguageNote  string     `yaml:"language_note,omitempty"`
	GeoRefs       string     `yaml:"geo_refs,omitempty"`
	LocaleContext string     `yaml:"locale_context,omitempty"`
	BBox          [4]float64 `yaml:"bbox,omitempty"`
}

// Contains reports whether the coordinate lies inside the destination's
// bounding box. Destinations without a box accept everything.
func (d Destination) Contains(lon, lat float64) bool {
	if d.BBox == [4]float64{} {
		return true
	}
	b := geom.NewBounds(geom.XY)
	b.Set(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
	return b.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Destinations is the indexed destination registry.
type Destinations struct {
	All  []Destination
	byID map[string]*Destination
}

// NewDestinations indexes a destination list.
func NewDestinations(list []Destination) *Destinations {
	d := &Destinations{All: list, byID: make(map[string]*Destination, len(list))}
	for i := range d.All {
		d.byID[d.All[i].ID] = &d.All[i]
	}
	return d
}

// LoadDestinations reads the destination registry from a YAML file.
func LoadDestinations(path string) (*Destinations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "model: read destinations file")
	}

	var doc struct {
		Destinations []Destination `yaml:"destinations"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "model: parse destinations file")
	}
	if len(doc.Destinations) == 0 {
		return nil, eris.New("model: destinations file is empty")
	}

	return NewDestinations(doc.Destinations), nil
}

// ByID returns the destination for the given id, or nil when unknown.
func (d *Destinations) ByID(id string) *Destination {
	return d.byID[id]
}
