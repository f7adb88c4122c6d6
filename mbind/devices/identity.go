package devices

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// ErrUnknownSlot is returned for slot names that don't exist
var ErrUnknownSlot = errors.New("unknown slot")

const storeSection = "Devices"

// Store is the key-value persistence the identity map writes through to
type Store interface {
	Get(section, key string, out interface{}) (bool, error)
	Put(section, key string, value interface{}) error
	Delete(section, key string) error
	Keys(section string) []string
}

// Identity ties a physical device to a slot
type Identity struct {
	UUID        string `json:"uuid" yaml:"UUID"`
	Slot        Slot   `json:"slot" yaml:"-"`
	DisplayName string `json:"display_name" yaml:"DisplayName"`
}

type identitySnapshot struct {
	bySlot map[Slot]Identity
	byUUID map[string]Slot
}

// IdentityMap is the source of truth for which physical device is which
// slot. Reads use an immutable snapshot; writes copy it.
type IdentityMap struct {
	writeMu sync.Mutex
	current atomic.Pointer[identitySnapshot]
	store   Store
	log     *common.Logger
}

// NewIdentityMap loads every slot found in store. Missing slots are
// unconfigured.
func NewIdentityMap(store Store, log *common.Logger) (*IdentityMap, error) {
	m := &IdentityMap{store: store, log: log}
	snap := &identitySnapshot{
		bySlot: make(map[Slot]Identity),
		byUUID: make(map[string]Slot),
	}
	for _, key := range store.Keys(storeSection) {
		slot, err := ParseSlot(key)
		if err != nil {
			log.Err("device store: %s", err)
			continue
		}
		var id Identity
		if _, err := store.Get(storeSection, key, &id); err != nil {
			return nil, err
		}
		if id.UUID == "" {
			continue
		}
		id.Slot = slot
		// A hand edited store may repeat a uuid. Last slot read wins.
		if prev, found := snap.byUUID[id.UUID]; found {
			delete(snap.bySlot, prev)
		}
		snap.bySlot[slot] = id
		snap.byUUID[id.UUID] = slot
	}
	m.current.Store(snap)
	return m, nil
}

// Resolve returns the slot a device uuid is recorded against
func (m *IdentityMap) Resolve(uuid string) (Slot, bool) {
	if uuid == "" {
		return SlotNone, false
	}
	slot, found := m.current.Load().byUUID[uuid]
	return slot, found
}

// Lookup returns the identity recorded for a slot
func (m *IdentityMap) Lookup(slot Slot) (Identity, bool) {
	id, found := m.current.Load().bySlot[slot]
	return id, found
}

// Identities returns every recorded identity ordered by slot
func (m *IdentityMap) Identities() []Identity {
	snap := m.current.Load()
	out := make([]Identity, 0, len(snap.bySlot))
	for _, id := range snap.bySlot {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Record binds uuid to slot. Whatever the uuid was bound to before and
// whatever the slot held before are both dropped.
func (m *IdentityMap) Record(uuid, displayName string, slot Slot) error {
	if slot == SlotNone {
		return fmt.Errorf("%w: none", ErrUnknownSlot)
	}
	if uuid == "" {
		return errors.New("device uuid is empty")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	next := m.current.Load().clone()
	prevSlot, moved := next.byUUID[uuid]
	moved = moved && prevSlot != slot
	displaced, held := next.bySlot[slot]

	// Write the new slot before dropping the old one so a failed write
	// leaves the store as it was
	id := Identity{UUID: uuid, Slot: slot, DisplayName: displayName}
	if err := m.store.Put(storeSection, slot.String(), id); err != nil {
		return err
	}
	if moved {
		if err := m.store.Delete(storeSection, prevSlot.String()); err != nil {
			m.restore(slot, displaced, held)
			return err
		}
		delete(next.bySlot, prevSlot)
		m.log.Msg("Device %s moved from %s to %s", uuid, prevSlot, slot)
	}
	if held && displaced.UUID != uuid {
		delete(next.byUUID, displaced.UUID)
	}
	next.bySlot[slot] = id
	next.byUUID[uuid] = slot
	m.current.Store(next)
	return nil
}

// restore puts back what slot held before a failed Record
func (m *IdentityMap) restore(slot Slot, prev Identity, held bool) {
	var err error
	if held {
		err = m.store.Put(storeSection, slot.String(), prev)
	} else {
		err = m.store.Delete(storeSection, slot.String())
	}
	if err != nil {
		m.log.Err("device store: restoring %s: %s", slot, err)
	}
}

// Reset forgets the device in slot, both directions
func (m *IdentityMap) Reset(slot Slot) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	next := m.current.Load().clone()
	id, found := next.bySlot[slot]
	if !found {
		return nil
	}
	delete(next.bySlot, slot)
	delete(next.byUUID, id.UUID)
	if err := m.store.Delete(storeSection, slot.String()); err != nil {
		return err
	}
	m.current.Store(next)
	return nil
}

func (s *identitySnapshot) clone() *identitySnapshot {
	c := &identitySnapshot{
		bySlot: make(map[Slot]Identity, len(s.bySlot)),
		byUUID: make(map[string]Slot, len(s.byUUID)),
	}
	for k, v := range s.bySlot {
		c.bySlot[k] = v
	}
	for k, v := range s.byUUID {
		c.byUUID[k] = v
	}
	return c
}
