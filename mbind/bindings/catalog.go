package bindings

import (
	"github.com/ankurkotwal/metabind/mbind/common"
)

// CatalogAction is an action the game knows about, whether or not the
// user has rebound it
type CatalogAction struct {
	UILabel string `yaml:"UILabel"`
	// Defaults by device prefix (kb, mo, js, gp) -> default input
	Defaults map[string]string `yaml:"Defaults"`
}

// CatalogMap is one action map and its actions
type CatalogMap struct {
	UILabel string                   `yaml:"UILabel"`
	Actions map[string]CatalogAction `yaml:"Actions"`
}

// Catalog is every action map in the game with labels and defaults
type Catalog struct {
	ActionMaps map[string]CatalogMap `yaml:"ActionMaps"`
}

// LoadCatalog reads a catalog yaml. An empty filename gives an empty
// catalog.
func LoadCatalog(filename string) (*Catalog, error) {
	c := &Catalog{}
	if filename != "" {
		if err := common.LoadYaml(filename, c); err != nil {
			return nil, err
		}
	}
	if c.ActionMaps == nil {
		c.ActionMaps = make(map[string]CatalogMap)
	}
	return c, nil
}

// Has reports whether the game defines the action
func (c *Catalog) Has(ref common.ActionRef) bool {
	if c == nil {
		return false
	}
	_, found := c.ActionMaps[ref.ActionMap].Actions[ref.Action]
	return found
}

// Default is the game's default input for the action on a device class,
// "" when there is none
func (c *Catalog) Default(ref common.ActionRef, source common.InputSource) string {
	if c == nil {
		return ""
	}
	return c.ActionMaps[ref.ActionMap].Actions[ref.Action].Defaults[source.Prefix()]
}

// Labels returns the user facing labels of an action map and action,
// falling back to formatted names
func (c *Catalog) Labels(ref common.ActionRef) (mapLabel, actionLabel string) {
	if c != nil {
		if m, found := c.ActionMaps[ref.ActionMap]; found {
			mapLabel = m.UILabel
			actionLabel = m.Actions[ref.Action].UILabel
		}
	}
	if mapLabel == "" {
		mapLabel = common.FormatActionName(ref.ActionMap)
	}
	if actionLabel == "" {
		actionLabel = common.FormatActionName(ref.Action)
	}
	return mapLabel, actionLabel
}
