package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// MeshFile is the nav mesh exchange format. The game plugin sends it inside
// the hello message as JSON; offline tooling reads the same shape from YAML.
type MeshFile struct {
	Map   string     `json:"map,omitempty" yaml:"map,omitempty"`
	Areas []MeshArea `json:"areas" yaml:"areas"`
}

type MeshArea struct {
	ID          AreaID           `json:"id" yaml:"id"`
	Center      Vec3             `json:"center" yaml:"center"`
	Attributes  []string         `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Connections []MeshConnection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// MeshConnection describes one outgoing link. A missing cost means 1.0.
type MeshConnection struct {
	To        AreaID   `json:"to" yaml:"to"`
	Type      ConnType `json:"type,omitempty" yaml:"type,omitempty"`
	Cost      *float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
	TwoWay    bool     `json:"two_way,omitempty" yaml:"two_way,omitempty"`
	FromPoint *Vec3    `json:"from_point,omitempty" yaml:"from_point,omitempty"`
	ToPoint   *Vec3    `json:"to_point,omitempty" yaml:"to_point,omitempty"`
}

// ReadMeshFile parses a YAML nav mesh from disk.
func ReadMeshFile(path string) (MeshFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MeshFile{}, fmt.Errorf("nav: reading %s: %w", path, err)
	}
	var mesh MeshFile
	if err := yaml.Unmarshal(data, &mesh); err != nil {
		return MeshFile{}, fmt.Errorf("nav: parsing %s: %w", path, err)
	}
	return mesh, nil
}

// LoadNavMesh clears g and populates it from mesh. Areas are inserted before
// any connection so forward references resolve. Connections to areas the mesh
// does not define are skipped and counted rather than failing the load.
func LoadNavMesh(g *Graph, mesh MeshFile) (skipped int, err error) {
	seen := make(map[AreaID]struct{}, len(mesh.Areas))
	areas := make([]Area, 0, len(mesh.Areas))
	for _, ma := range mesh.Areas {
		if ma.ID == InvalidAreaID {
			return 0, errors.New("nav: area id 0 is reserved")
		}
		if _, dup := seen[ma.ID]; dup {
			return 0, fmt.Errorf("nav: duplicate area id %d", ma.ID)
		}
		seen[ma.ID] = struct{}{}

		var attrs AreaAttr
		for _, name := range ma.Attributes {
			a, err := ParseAttr(name)
			if err != nil {
				return 0, fmt.Errorf("nav: area %d: %w", ma.ID, err)
			}
			attrs |= a
		}
		areas = append(areas, Area{ID: ma.ID, Center: ma.Center, Attrs: attrs})
	}

	g.Clear()
	for _, a := range areas {
		g.AddNode(a)
	}
	for _, ma := range mesh.Areas {
		for _, mc := range ma.Connections {
			cost := 1.0
			if mc.Cost != nil {
				cost = *mc.Cost
			}
			if err := g.AddConnection(ma.ID, mc.To, mc.Type, cost, mc.TwoWay, mc.FromPoint, mc.ToPoint); err != nil {
				skipped++
			}
		}
	}
	slog.Info("nav mesh loaded", "map", mesh.Map, "areas", g.Len(), "skippedConnections", skipped)
	return skipped, nil
}
