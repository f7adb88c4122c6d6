package axes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// MaxAxes is the number of raw axis indices a device can expose (0..7)
const MaxAxes = 8

const storeSection = "Axes"

// Table maps raw axis index (0 based) -> logical axis name
type Table map[int]string

// Store is the key-value persistence tables are written through to
type Store interface {
	Get(section, key string, out interface{}) (bool, error)
	Put(section, key string, value interface{}) error
	Delete(section, key string) error
	Keys(section string) []string
}

// MappingTable is what gets persisted per device
type MappingTable struct {
	Mapping    Table `json:"mapping" yaml:"Mapping"`
	UserEdited bool  `json:"user_edited" yaml:"UserEdited"`
}

// Normalizer turns raw axis indices into the game's logical axis names
type Normalizer struct {
	mu       sync.RWMutex
	tables   map[string]MappingTable // device uuid ->
	names    map[string]string       // device uuid -> device name
	profiles *Profiles
	store    Store
	log      *common.Logger

	Resolution *Resolution
}

// NewNormalizer loads every persisted table from store. profiles may be nil.
func NewNormalizer(store Store, profiles *Profiles, log *common.Logger) (*Normalizer, error) {
	n := &Normalizer{
		tables:     make(map[string]MappingTable),
		names:      make(map[string]string),
		profiles:   profiles,
		store:      store,
		log:        log,
		Resolution: NewResolution(),
	}
	for _, device := range store.Keys(storeSection) {
		var table MappingTable
		if _, err := store.Get(storeSection, device, &table); err != nil {
			return nil, err
		}
		if err := table.Mapping.Validate(); err != nil {
			log.Err("axis table for %s ignored: %s", device, err)
			continue
		}
		n.tables[device] = table
	}
	return n, nil
}

// RegisterDevice remembers the name of a device so a matching axis profile
// can be used when it has no table of its own
func (n *Normalizer) RegisterDevice(device, name string) {
	if device == "" || name == "" {
		return
	}
	n.mu.Lock()
	n.names[device] = name
	n.mu.Unlock()
}

// LogicalName returns the logical name for a raw 0 based axis index. An
// unmapped index comes back as "axisN" with N 1 based, the same number the
// backend reports.
func (n *Normalizer) LogicalName(device string, rawIndex int) string {
	n.mu.RLock()
	table, found := n.tables[device]
	name := n.names[device]
	n.mu.RUnlock()

	if found {
		if logical, ok := table.Mapping[rawIndex]; ok {
			return logical
		}
		return fallbackName(rawIndex)
	}
	if name != "" {
		if _, profile, ok := n.profiles.ForDevice(name); ok {
			if logical, ok := InvertProfile(profile)[rawIndex]; ok {
				return logical
			}
		}
	}
	return fallbackName(rawIndex)
}

func fallbackName(rawIndex int) string {
	return fmt.Sprintf("axis%d", rawIndex+1)
}

// AutoPopulate derives a table from descriptor names (1 based) and
// persists it, unless the user already edited this device's table, in
// which case the user's table is kept and returned.
func (n *Normalizer) AutoPopulate(device string, descriptorNames map[int]string) (MappingTable, error) {
	derived := MappingTable{Mapping: Derive(descriptorNames)}

	n.mu.Lock()
	defer n.mu.Unlock()
	if existing, found := n.tables[device]; found && existing.UserEdited {
		n.log.Msg("Keeping user axis table for %s", device)
		return existing, nil
	}
	if err := n.store.Put(storeSection, device, derived); err != nil {
		return MappingTable{}, err
	}
	n.tables[device] = derived
	return derived, nil
}

// SetTable stores a user edited table for a device
func (n *Normalizer) SetTable(device string, mapping Table) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	table := MappingTable{Mapping: mapping, UserEdited: true}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.store.Put(storeSection, device, table); err != nil {
		return err
	}
	n.tables[device] = table
	return nil
}

// Table returns a copy of the device's table
func (n *Normalizer) Table(device string) (MappingTable, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	table, found := n.tables[device]
	if !found {
		return MappingTable{}, false
	}
	c := MappingTable{Mapping: make(Table, len(table.Mapping)), UserEdited: table.UserEdited}
	for k, v := range table.Mapping {
		c.Mapping[k] = v
	}
	return c, true
}

// ResetTable forgets the device's table
func (n *Normalizer) ResetTable(device string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.tables, device)
	return n.store.Delete(storeSection, device)
}

// Validate checks raw indices are in range and no logical name is used twice
func (t Table) Validate() error {
	used := make(map[string]int)
	indices := make([]int, 0, len(t))
	for raw := range t {
		indices = append(indices, raw)
	}
	sort.Ints(indices)
	for _, raw := range indices {
		logical := t[raw]
		if raw < 0 || raw >= MaxAxes {
			return fmt.Errorf("raw axis index %d out of range", raw)
		}
		if !IsLogicalName(logical) {
			return fmt.Errorf("raw axis %d: unknown logical axis %q", raw, logical)
		}
		if prev, dup := used[logical]; dup {
			return fmt.Errorf("logical axis %q mapped from both %d and %d", logical, prev, raw)
		}
		used[logical] = raw
	}
	return nil
}
