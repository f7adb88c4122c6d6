package bindings

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
)

// ErrActionNotFound - the action is neither bound nor in the catalog
var ErrActionNotFound = errors.New("action not found")

// Rebind is one input bound to an action
type Rebind struct {
	Input          string `json:"input"`
	MultiTap       int    `json:"multi_tap,omitempty"`
	ActivationMode string `json:"activation_mode,omitempty"`
}

// Action is a rebound action and its inputs
type Action struct {
	Name    string
	Rebinds []Rebind
}

// ActionMap is a group of rebound actions
type ActionMap struct {
	Name    string
	Actions []*Action
}

// Binding is one row of the flat bindings table
type Binding struct {
	common.ActionRef
	Rebind
}

// Profile is the user's customised bindings, as stored in the game's
// actionmaps file. Safe for concurrent use.
type Profile struct {
	mu      sync.RWMutex
	doc     document
	catalog *Catalog
}

// NewProfile creates an empty profile. catalog may be nil, in which case
// only actions already in the profile can be changed.
func NewProfile(catalog *Catalog) *Profile {
	return &Profile{catalog: catalog, doc: newDocument()}
}

// Catalog used for labels and defaults
func (p *Profile) Catalog() *Catalog {
	return p.catalog
}

// Bindings returns every rebind, in file order
func (p *Profile) Bindings() []Binding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Binding
	for _, m := range p.doc.maps {
		for _, a := range m.Actions {
			for _, rb := range a.Rebinds {
				out = append(out, Binding{
					ActionRef: common.ActionRef{ActionMap: m.Name, Action: a.Name},
					Rebind:    rb,
				})
			}
		}
	}
	return out
}

// Rebinds returns a copy of an action's rebinds
func (p *Profile) Rebinds(ref common.ActionRef) ([]Rebind, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, a := p.doc.find(ref)
	if a == nil {
		return nil, false
	}
	return append([]Rebind(nil), a.Rebinds...), true
}

// Commit binds input to the action. Any rebind of the same device class is
// replaced; joysticks only replace the same instance so js1 and js2 can be
// bound side by side.
func (p *Profile) Commit(ref common.ActionRef, input string, multiTap int, activationMode string) error {
	normalized, err := canonical.Normalize(input)
	if err != nil {
		return err
	}
	rb := Rebind{Input: normalized, MultiTap: multiTap, ActivationMode: activationMode}

	p.mu.Lock()
	defer p.mu.Unlock()
	a, err := p.action(ref)
	if err != nil {
		return err
	}
	a.Rebinds = append(withoutSameDevice(a.Rebinds, normalized), rb)
	return nil
}

// Reset drops the user's customisation of the action. Returns false when
// there was none.
func (p *Profile) Reset(ref common.ActionRef) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, a := p.doc.find(ref)
	if a == nil {
		return false
	}
	p.doc.remove(m, a)
	return true
}

// Clear unbinds the action on input's device. When the game has a default
// for that device class an explicit unbind ("js1_ ") is written so the
// default doesn't come back; otherwise the rebind is just removed. input
// may be a full input or a bare device prefix such as "kb1".
func (p *Profile) Clear(ref common.ActionRef, input string) error {
	source, instance, err := deviceOf(input)
	if err != nil {
		return err
	}
	unbind := fmt.Sprintf("%s%s_ ", source.Prefix(), instance)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.catalog.Default(ref, source) != "" {
		a, err := p.action(ref)
		if err != nil {
			return err
		}
		a.Rebinds = append(withoutSameDevice(a.Rebinds, unbind), Rebind{Input: unbind})
		return nil
	}
	m, a := p.doc.find(ref)
	if a == nil {
		return nil
	}
	a.Rebinds = withoutSameDevice(a.Rebinds, unbind)
	if len(a.Rebinds) == 0 {
		p.doc.remove(m, a)
	}
	return nil
}

// action finds or creates the action. Lock held.
func (p *Profile) action(ref common.ActionRef) (*Action, error) {
	if _, a := p.doc.find(ref); a != nil {
		return a, nil
	}
	if !p.catalog.Has(ref) {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, ref)
	}
	return p.doc.add(ref), nil
}

// replace swaps in the contents of a freshly loaded profile
func (p *Profile) replace(doc document) {
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
}

var bareDeviceRegex = regexp.MustCompile(`^([a-z]+?)(\d*)$`)

// deviceOf accepts "js2_button4", "js2_ ", "js2", "keyboard" and the like
func deviceOf(input string) (common.InputSource, string, error) {
	source := canonical.InputType(input)
	prefix := canonical.DevicePrefix(input)
	if source == common.SourceUnknown || prefix == "" {
		prefix = strings.ToLower(strings.TrimSpace(input))
	}
	m := bareDeviceRegex.FindStringSubmatch(prefix)
	if m == nil {
		return common.SourceUnknown, "", fmt.Errorf("%w: %q", canonical.ErrUnparseable, input)
	}
	if source == common.SourceUnknown {
		source, _ = common.ParseSource(m[1])
	}
	if source == common.SourceUnknown {
		return source, "", fmt.Errorf("%w: %q", canonical.ErrUnparseable, input)
	}
	instance := m[2]
	if instance == "" || !source.IsDevice() {
		instance = "1"
	}
	return source, instance, nil
}

// sameDevice compares by device class, and by instance for joysticks
func sameDevice(a, b string) bool {
	ta, tb := canonical.InputType(a), canonical.InputType(b)
	if ta != tb {
		return false
	}
	if ta == common.SourceJoystick {
		return canonical.DevicePrefix(a) == canonical.DevicePrefix(b)
	}
	return true
}

func withoutSameDevice(rebinds []Rebind, input string) []Rebind {
	out := rebinds[:0:0]
	for _, rb := range rebinds {
		if !sameDevice(rb.Input, input) {
			out = append(out, rb)
		}
	}
	return out
}
