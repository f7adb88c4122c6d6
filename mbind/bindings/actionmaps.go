package bindings

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ankurkotwal/metabind/mbind/common"
)

// rawElement is a top level element we don't interpret, kept so a save
// writes it back untouched (device options, modifiers, the header)
type rawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

// document is the parsed actionmaps file
type document struct {
	attrs  []xml.Attr
	extras []rawElement
	maps   []*ActionMap
}

func newDocument() document {
	return document{attrs: []xml.Attr{
		{Name: xml.Name{Local: "version"}, Value: "1"},
		{Name: xml.Name{Local: "optionsVersion"}, Value: "2"},
		{Name: xml.Name{Local: "rebindVersion"}, Value: "2"},
		{Name: xml.Name{Local: "profileName"}, Value: "metabind"},
	}}
}

func (d *document) find(ref common.ActionRef) (*ActionMap, *Action) {
	for _, m := range d.maps {
		if m.Name != ref.ActionMap {
			continue
		}
		for _, a := range m.Actions {
			if a.Name == ref.Action {
				return m, a
			}
		}
		return m, nil
	}
	return nil, nil
}

func (d *document) add(ref common.ActionRef) *Action {
	m, _ := d.find(ref)
	if m == nil {
		m = &ActionMap{Name: ref.ActionMap}
		d.maps = append(d.maps, m)
	}
	a := &Action{Name: ref.Action}
	m.Actions = append(m.Actions, a)
	return a
}

// remove drops the action, and the map with it when it empties
func (d *document) remove(m *ActionMap, a *Action) {
	for i, other := range m.Actions {
		if other == a {
			m.Actions = append(m.Actions[:i], m.Actions[i+1:]...)
			break
		}
	}
	if len(m.Actions) > 0 {
		return
	}
	for i, other := range d.maps {
		if other == m {
			d.maps = append(d.maps[:i], d.maps[i+1:]...)
			return
		}
	}
}

// LoadProfile reads the game's actionmaps file. A missing file gives an
// empty profile.
func LoadProfile(filename string, catalog *Catalog, log *common.Logger) (*Profile, error) {
	p := NewProfile(catalog)
	if filename == "" {
		return p, nil
	}
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		log.Msg("No action maps at %s, starting empty", filename)
		return p, nil
	} else if err != nil {
		return nil, err
	}
	doc, err := parseDocument(data, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	p.doc = doc
	return p, nil
}

// ParseProfile reads actionmaps xml from memory
func ParseProfile(data []byte, catalog *Catalog, log *common.Logger) (*Profile, error) {
	doc, err := parseDocument(data, log)
	if err != nil {
		return nil, err
	}
	p := NewProfile(catalog)
	p.doc = doc
	return p, nil
}

func parseDocument(data []byte, log *common.Logger) (document, error) {
	var doc document
	var currMap *ActionMap
	var currAction *Action
	depth := 0
	foundRoot := false

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if token == nil || err == io.EOF {
			break
		} else if err != nil {
			return doc, fmt.Errorf("decoding action maps: %w", err)
		}

		switch ty := token.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 1:
				if ty.Name.Local != "ActionMaps" {
					return doc, fmt.Errorf("unexpected root element %s", ty.Name.Local)
				}
				foundRoot = true
				doc.attrs = append([]xml.Attr(nil), ty.Attr...)
			case depth == 2 && ty.Name.Local == "actionmap":
				currMap = &ActionMap{Name: attr(ty, "name")}
				doc.maps = append(doc.maps, currMap)
			case depth == 2:
				var raw rawElement
				if err := decoder.DecodeElement(&raw, &ty); err != nil {
					return doc, fmt.Errorf("decoding %s: %w", ty.Name.Local, err)
				}
				doc.extras = append(doc.extras, raw)
				depth--
			case depth == 3 && ty.Name.Local == "action" && currMap != nil:
				currAction = &Action{Name: attr(ty, "name")}
				currMap.Actions = append(currMap.Actions, currAction)
			case depth == 4 && ty.Name.Local == "rebind" && currAction != nil:
				rb := Rebind{Input: attr(ty, "input"), ActivationMode: attr(ty, "activationMode")}
				if tap := attr(ty, "multiTap"); tap != "" {
					if rb.MultiTap, err = strconv.Atoi(tap); err != nil {
						log.Err("%s/%s: multiTap %q is not a number", currMap.Name,
							currAction.Name, tap)
					}
				}
				currAction.Rebinds = append(currAction.Rebinds, rb)
			}
		case xml.EndElement:
			switch {
			case depth == 2 && ty.Name.Local == "actionmap":
				currMap = nil
			case depth == 3 && ty.Name.Local == "action":
				currAction = nil
			}
			depth--
		}
	}
	if !foundRoot {
		return doc, fmt.Errorf("no ActionMaps element")
	}
	return doc, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

type xmlRebind struct {
	Input          string `xml:"input,attr"`
	MultiTap       int    `xml:"multiTap,attr,omitempty"`
	ActivationMode string `xml:"activationMode,attr,omitempty"`
}

type xmlAction struct {
	Name    string      `xml:"name,attr"`
	Rebinds []xmlRebind `xml:"rebind"`
}

type xmlActionMap struct {
	XMLName xml.Name    `xml:"actionmap"`
	Name    string      `xml:"name,attr"`
	Actions []xmlAction `xml:"action"`
}

// WriteTo writes the profile as actionmaps xml
func (p *Profile) WriteTo(w io.Writer) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", " ")
	root := xml.StartElement{Name: xml.Name{Local: "ActionMaps"}, Attr: p.doc.attrs}
	if err := enc.EncodeToken(root); err != nil {
		return 0, err
	}
	for _, raw := range p.doc.extras {
		if err := enc.Encode(raw); err != nil {
			return 0, err
		}
	}
	for _, m := range p.doc.maps {
		out := xmlActionMap{Name: m.Name}
		for _, a := range m.Actions {
			xa := xmlAction{Name: a.Name}
			for _, rb := range a.Rebinds {
				xa.Rebinds = append(xa.Rebinds, xmlRebind(rb))
			}
			out.Actions = append(out.Actions, xa)
		}
		if err := enc.Encode(out); err != nil {
			return 0, err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return 0, err
	}
	if err := enc.Flush(); err != nil {
		return 0, err
	}
	buf.WriteString("\n")
	return buf.WriteTo(w)
}

// Save writes the profile to filename, replacing it atomically
func (p *Profile) Save(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := p.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
