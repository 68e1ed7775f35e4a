package domain

import "sort"

// Contact is a named phone number whose messages are protected from cleanup.
type Contact struct {
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Valid reports whether the contact carries both a name and a number.
func (c Contact) Valid() bool {
	return c.Name != "" && c.Number != ""
}

// Whitelist is a case-sensitive set of sender identifiers (numbers or
// contact names).
type Whitelist map[string]struct{}

// NewWhitelist returns a whitelist holding the non-empty entries.
func NewWhitelist(entries ...string) Whitelist {
	w := make(Whitelist, len(entries))
	w.Add(entries...)
	return w
}

// Add inserts the non-empty entries.
func (w Whitelist) Add(entries ...string) {
	for _, e := range entries {
		if e == "" {
			continue
		}
		w[e] = struct{}{}
	}
}

// Has reports whether sender is protected. A nil whitelist protects nothing.
func (w Whitelist) Has(sender string) bool {
	_, ok := w[sender]
	return ok
}

// Sorted returns the entries in lexical order for stable output.
func (w Whitelist) Sorted() []string {
	out := make([]string, 0, len(w))
	for e := range w {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
