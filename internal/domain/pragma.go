package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// PragmaKey is the property name that marks configuration for pytmc.
	PragmaKey = "pytmc"

	// HeaderTitle starts a new PV group inside a pragma.
	HeaderTitle = "pv"

	// FieldTitle marks EPICS record field lines.
	FieldTitle = "field"
)

var (
	reLine  = regexp.MustCompile(`(\S+):\s*(.*)`)
	reField = regexp.MustCompile(`(\S+)\s*(.*)`)
)

// Field is the parsed tag of a "field:" pragma line.
type Field struct {
	Name string
	Set  string
}

// Line is a single "title: tag" statement of a pragma.
// Field is set only for field lines; Tag keeps the unsplit text.
type Line struct {
	Title string
	Tag   string
	Field *Field
}

func (l Line) clone() Line {
	out := l
	if l.Field != nil {
		f := *l.Field
		out.Field = &f
	}
	return out
}

func (l Line) equal(o Line) bool {
	if l.Title != o.Title || l.Tag != o.Tag {
		return false
	}
	if (l.Field == nil) != (o.Field == nil) {
		return false
	}
	return l.Field == nil || *l.Field == *o.Field
}

// String renders the line back into pragma syntax.
func (l Line) String() string {
	if l.Field != nil {
		return fmt.Sprintf("%s: %s %s", l.Title, l.Field.Name, l.Field.Set)
	}
	return fmt.Sprintf("%s: %s", l.Title, l.Tag)
}

// Configuration is the structured form of a pytmc pragma.
type Configuration struct {
	Raw   string
	Lines []Line
}

// ParsePragma breaks a raw pragma into lines. Lines are terminated by ';',
// ";;", '\n' or '\r'; blank lines are dropped.
func ParsePragma(raw string) (*Configuration, error) {
	lines, err := parseLines(raw)
	if err != nil {
		return nil, err
	}
	return &Configuration{Raw: raw, Lines: lines}, nil
}

// NewConfiguration builds a configuration from already parsed lines.
func NewConfiguration(lines []Line) *Configuration {
	c := &Configuration{Lines: make([]Line, 0, len(lines))}
	for _, l := range lines {
		c.Lines = append(c.Lines, l.clone())
	}
	return c
}

func parseLines(raw string) ([]Line, error) {
	chunks := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '\n' || r == '\r'
	})

	out := make([]Line, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		m := reLine.FindStringSubmatch(chunk)
		if m == nil {
			return nil, pragmaError("pragma.parse", fmt.Sprintf("line %q is not in title: tag form", strings.TrimSpace(chunk)))
		}
		line := Line{Title: m[1], Tag: strings.TrimSpace(m[2])}
		if line.Title == FieldTitle {
			line.Field = splitField(line.Tag)
		}
		out = append(out, line)
	}
	return out, nil
}

func splitField(tag string) *Field {
	m := reField.FindStringSubmatch(tag)
	if m == nil {
		return &Field{}
	}
	return &Field{Name: m[1], Set: m[2]}
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := NewConfiguration(c.Lines)
	out.Raw = c.Raw
	return out
}

// ByName splits the configuration into one group per pv line.
// Lines that precede the first pv line belong to no group.
func (c *Configuration) ByName() [][]Line {
	var groups [][]Line
	for _, l := range c.Lines {
		if l.Title == HeaderTitle {
			groups = append(groups, []Line{})
		}
		if len(groups) == 0 {
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], l.clone())
	}
	return groups
}

// SelectByName returns the group declared by "pv: name", or nil.
func (c *Configuration) SelectByName(name string) []Line {
	for _, g := range c.ByName() {
		for _, l := range g {
			if l.Title == HeaderTitle && l.Tag == name {
				return g
			}
		}
	}
	return nil
}

// Names lists the PVs declared by the configuration, in order.
func (c *Configuration) Names() []string {
	var names []string
	for _, l := range c.Lines {
		if l.Title == HeaderTitle {
			names = append(names, l.Tag)
		}
	}
	return names
}

// FixToName cuts the configuration down to a single PV group.
func (c *Configuration) FixToName(name string) {
	c.Lines = c.SelectByName(name)
}

// AddLine inserts a line at index at (or appends when at < 0). With
// overwrite set, the first line with the same title is updated instead.
func (c *Configuration) AddLine(title, tag string, at int, overwrite bool) {
	if overwrite {
		for i := range c.Lines {
			if c.Lines[i].Title == title {
				c.Lines[i].Tag = tag
				if title == FieldTitle {
					c.Lines[i].Field = splitField(tag)
				}
				return
			}
		}
	}
	line := Line{Title: title, Tag: tag}
	if title == FieldTitle {
		line.Field = splitField(tag)
	}
	c.insert(line, at)
}

// AddField adds an EPICS field line. The setting is double quoted unless it
// already is. With overwrite set, an existing field of the same name is
// replaced in place.
func (c *Configuration) AddField(name, set string, at int, overwrite bool) {
	set = quote(set)
	line := Line{
		Title: FieldTitle,
		Tag:   name + " " + set,
		Field: &Field{Name: name, Set: set},
	}

	if overwrite {
		for i := range c.Lines {
			if c.Lines[i].Field != nil && c.Lines[i].Field.Name == name {
				c.Lines[i] = line
				return
			}
		}
	}
	c.insert(line, at)
}

func (c *Configuration) insert(line Line, at int) {
	if at < 0 || at >= len(c.Lines) {
		c.Lines = append(c.Lines, line)
		return
	}
	c.Lines = append(c.Lines, Line{})
	copy(c.Lines[at+1:], c.Lines[at:])
	c.Lines[at] = line
}

func quote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s
	}
	return `"` + s + `"`
}

// RemoveField drops every field line with the given name and returns them.
func (c *Configuration) RemoveField(name string) []Line {
	var removed []Line
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.Field != nil && l.Field.Name == name {
			removed = append(removed, l)
			continue
		}
		kept = append(kept, l)
	}
	c.Lines = kept
	return removed
}

// Get returns the lines with the given title, preserving order.
func (c *Configuration) Get(title string) []Line {
	var out []Line
	for _, l := range c.Lines {
		if l.Title == title {
			out = append(out, l)
		}
	}
	return out
}

// Value returns the tag of the first line with the given title.
func (c *Configuration) Value(title string) (string, bool) {
	for _, l := range c.Lines {
		if l.Title == title {
			return l.Tag, true
		}
	}
	return "", false
}

// Fields returns the field lines with the given field name.
func (c *Configuration) Fields(name string) []Line {
	var out []Line
	for _, l := range c.Lines {
		if l.Field != nil && l.Field.Name == name {
			out = append(out, l)
		}
	}
	return out
}

// Seek returns the lines of the given title whose tag equals value. For
// field lines the field name is compared instead.
func (c *Configuration) Seek(title, value string) []Line {
	var out []Line
	for _, l := range c.Lines {
		if l.Title != title {
			continue
		}
		if l.Field != nil {
			if l.Field.Name == value {
				out = append(out, l)
			}
			continue
		}
		if l.Tag == value {
			out = append(out, l)
		}
	}
	return out
}

// Equal reports whether both configurations share raw text and lines.
func (c *Configuration) Equal(o *Configuration) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Raw != o.Raw || len(c.Lines) != len(o.Lines) {
		return false
	}
	for i := range c.Lines {
		if !c.Lines[i].equal(o.Lines[i]) {
			return false
		}
	}
	return true
}

// Concat appends the interior configuration onto this one. The interior PV
// is prefixed with this configuration's PV and sep; interior lines
// overwrite lines of the same title (fields: same field name).
// Only valid when this configuration has at most one PV.
func (c *Configuration) Concat(inner *Configuration, sep string) error {
	names := c.Names()
	if len(names) > 1 {
		return pragmaError("pragma.concat", fmt.Sprintf("cannot concatenate onto %d PVs", len(names)))
	}

	base := ""
	if len(names) == 1 {
		base = names[0]
		if strings.TrimSpace(base) != "" && !strings.HasSuffix(base, sep) {
			base += sep
		}
	}

	for _, l := range inner.Lines {
		switch {
		case l.Title == HeaderTitle:
			c.AddLine(HeaderTitle, base+l.Tag, -1, true)
		case l.Field != nil:
			c.AddField(l.Field.Name, l.Field.Set, -1, true)
		default:
			c.AddLine(l.Title, l.Tag, -1, true)
		}
	}
	return nil
}

// String renders the configuration as a newline separated pragma.
func (c *Configuration) String() string {
	parts := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		parts = append(parts, l.String())
	}
	return strings.Join(parts, "\n")
}
