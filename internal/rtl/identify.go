package rtl

import (
	"sort"
	"strings"
)

// Entry is one row of the identification table. Manufacturer and Product
// are case-insensitive substrings; an empty substring matches anything.
type Entry struct {
	Manufacturer string
	Product      string
	Rank         int
	Model        Model
}

func (e Entry) matches(manufacturer, product string) bool {
	return strings.Contains(manufacturer, strings.ToLower(e.Manufacturer)) &&
		strings.Contains(product, strings.ToLower(e.Product))
}

// Source records where an Identity came from.
type Source int

const (
	SourceNone Source = iota
	SourceDescriptor
	SourceTuner
)

func (s Source) String() string {
	switch s {
	case SourceDescriptor:
		return "descriptor"
	case SourceTuner:
		return "tuner"
	default:
		return "none"
	}
}

// Identity is the resolved chipset for one handle. Known is false when
// nothing matched; Clock resolution then falls back to DefaultXtalHz.
type Identity struct {
	Model      Model
	Known      bool
	Source     Source
	Entry      Entry
	Ambiguous  bool
	Candidates []Model
}

// Unknown reports the designated "no match" outcome.
func (id Identity) Unknown() bool { return !id.Known }

// Table is an immutable, ranked identification table.
type Table struct {
	entries []Entry
}

// NewTable validates entries and orders them by descending rank. Entries of
// equal rank keep their relative order, which only affects the order of
// Candidates in an ambiguous Identity.
func NewTable(entries []Entry) (*Table, error) {
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if e.Model.Name == "" {
			return nil, invalidf("table entry %d: empty model name", i)
		}
		if strings.TrimSpace(e.Manufacturer) == "" && strings.TrimSpace(e.Product) == "" {
			return nil, invalidf("table entry %d (%s): no match strings", i, e.Model.Name)
		}
		if e.Model.XtalHz == 0 {
			return nil, invalidf("table entry %d (%s): zero crystal frequency", i, e.Model.Name)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank > out[j].Rank })
	return &Table{entries: out}, nil
}

// DefaultTable returns the built-in table of known dongles.
func DefaultTable() *Table {
	t, err := NewTable(defaultEntries())
	if err != nil {
		panic(err)
	}
	return t
}

// Entries returns a copy of the table rows in evaluation order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Identify resolves the descriptor strings against the table. The match
// with the highest rank wins. If two different models match at that rank
// the result is Unknown with Ambiguous set, so iteration order never
// decides between them.
func (t *Table) Identify(manufacturer, product string) Identity {
	m := normalizeDescriptor(manufacturer)
	p := normalizeDescriptor(product)

	var hits []Entry
	for _, e := range t.entries {
		if len(hits) > 0 && e.Rank < hits[0].Rank {
			break
		}
		if e.matches(m, p) {
			hits = append(hits, e)
		}
	}
	if len(hits) == 0 {
		return Identity{Model: UnknownModel}
	}

	var candidates []Model
	for _, h := range hits {
		if !containsModel(candidates, h.Model) {
			candidates = append(candidates, h.Model)
		}
	}
	if len(candidates) > 1 {
		return Identity{Model: UnknownModel, Ambiguous: true, Candidates: candidates}
	}
	return Identity{Model: hits[0].Model, Known: true, Source: SourceDescriptor, Entry: hits[0]}
}

// normalizeDescriptor lower-cases a USB string descriptor and strips the
// NUL padding and whitespace some firmwares leave around it.
func normalizeDescriptor(s string) string {
	return strings.ToLower(strings.Trim(s, " \t\r\n\x00"))
}

func containsModel(models []Model, m Model) bool {
	for _, x := range models {
		if x == m {
			return true
		}
	}
	return false
}
