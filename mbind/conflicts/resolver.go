package conflicts

import (
	"strings"

	"github.com/ankurkotwal/metabind/mbind/bindings"
	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/common"
)

// Table is the current bindings
type Table interface {
	Bindings() []bindings.Binding
}

// Labeler supplies user facing names for an action
type Labeler interface {
	Labels(ref common.ActionRef) (mapLabel, actionLabel string)
}

// Resolver answers which other actions already use an input. The answer
// is advisory: the game allows one input on several actions.
type Resolver struct {
	Table  Table
	Labels Labeler
}

// NewResolver creates a resolver over a profile, labelled by its catalog
func NewResolver(profile *bindings.Profile) *Resolver {
	return &Resolver{Table: profile, Labels: profile.Catalog()}
}

// FindConflicts lists every action other than exclude bound to candidate,
// one entry per action, in bindings order. Inputs are compared in
// canonical form so "JS1_Button3" and "js1_button3" collide.
func (r *Resolver) FindConflicts(candidate string, exclude common.ActionRef) []common.ConflictEntry {
	want := canonicalForm(candidate)
	if want == "" {
		return nil
	}
	seen := make(map[common.ActionRef]bool)
	var out []common.ConflictEntry
	for _, b := range r.Table.Bindings() {
		if b.ActionRef == exclude || seen[b.ActionRef] {
			continue
		}
		if canonicalForm(b.Input) != want {
			continue
		}
		seen[b.ActionRef] = true
		mapLabel, actionLabel := r.labels(b.ActionRef)
		out = append(out, common.ConflictEntry{
			ActionMapName:  b.ActionMap,
			ActionName:     b.Action,
			ActionLabel:    actionLabel,
			ActionMapLabel: mapLabel,
		})
	}
	return out
}

func (r *Resolver) labels(ref common.ActionRef) (string, string) {
	if r.Labels == nil {
		return common.FormatActionName(ref.ActionMap), common.FormatActionName(ref.Action)
	}
	return r.Labels.Labels(ref)
}

// canonicalForm is the canonical form, or "" for unbound and unparseable
// inputs, which never conflict
func canonicalForm(input string) string {
	if canonical.IsUnbound(input) || strings.TrimSpace(input) == "" {
		return ""
	}
	normalized, err := canonical.Normalize(input)
	if err != nil {
		return ""
	}
	return normalized
}
