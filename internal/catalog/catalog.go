// Package catalog serves the freight loads offered to callers. The set is
// loaded once at startup and never changes afterwards.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// DefaultSearchLimit applies when a search request does not ask for a size.
const DefaultSearchLimit = 3

type Catalog struct {
	loads []model.Load
	byID  map[string]int
}

// New validates loads and builds a catalog over them.
func New(loads []model.Load) (*Catalog, error) {
	c := &Catalog{
		loads: make([]model.Load, 0, len(loads)),
		byID:  make(map[string]int, len(loads)),
	}
	for i, l := range loads {
		l.LoadID = strings.TrimSpace(l.LoadID)
		if l.LoadID == "" {
			return nil, fmt.Errorf("load %d: load_id is required: %w", i, model.ErrValidation)
		}
		if _, dup := c.byID[l.LoadID]; dup {
			return nil, fmt.Errorf("load %s: duplicate load_id: %w", l.LoadID, model.ErrValidation)
		}
		if !(l.LoadboardRate > 0) {
			return nil, fmt.Errorf("load %s: loadboard_rate must be positive: %w", l.LoadID, model.ErrValidation)
		}
		c.byID[l.LoadID] = len(c.loads)
		c.loads = append(c.loads, l)
	}
	return c, nil
}

// LoadFile reads a JSON or YAML array of loads, or a TOML file of [[loads]]
// tables. The format follows the file extension; anything other than .yaml,
// .yml or .toml is parsed as JSON.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loads file: %w", err)
	}

	var loads []model.Load
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loads)
	case ".toml":
		var doc struct {
			Loads []model.Load `toml:"loads"`
		}
		err = toml.Unmarshal(data, &doc)
		loads = doc.Loads
	default:
		err = json.Unmarshal(data, &loads)
	}
	if err != nil {
		return nil, fmt.Errorf("parse loads file %s: %w", path, err)
	}
	return New(loads)
}

func (c *Catalog) Len() int {
	return len(c.loads)
}

func (c *Catalog) Get(loadID string) (model.Load, error) {
	i, ok := c.byID[strings.TrimSpace(loadID)]
	if !ok {
		return model.Load{}, fmt.Errorf("load %s: %w", loadID, model.ErrNotFound)
	}
	return c.loads[i], nil
}

// Search returns loads matching every non-empty filter, highest listed rate
// first, truncated to max(1, limit).
func (c *Catalog) Search(origin, destination, equipmentType string, limit int) []model.Load {
	origin, destination, equipmentType = normalize(origin), normalize(destination), normalize(equipmentType)

	matches := make([]model.Load, 0)
	for _, l := range c.loads {
		if !matchField(l.Origin, origin) || !matchField(l.Destination, destination) || !matchField(l.EquipmentType, equipmentType) {
			continue
		}
		matches = append(matches, l)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].LoadboardRate > matches[j].LoadboardRate
	})

	if limit < 1 {
		limit = 1
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// normalize lowercases s and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func matchField(actual, wanted string) bool {
	return wanted == "" || normalize(actual) == wanted
}
