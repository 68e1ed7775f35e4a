package whitelist

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"lte-sms-manager/internal/domain"
)

// Setting keys read from the configuration source.
const (
	KeyNumbers  = "whitelist_numbers"
	KeyContacts = "contacts"
)

type contactsFormat int

const (
	formatEmpty contactsFormat = iota
	formatJSON
	formatLegacy
)

var newUUID = func() string {
	return uuid.NewString()
}

// ParseNumbers splits a newline separated list of numbers, dropping blanks.
func ParseNumbers(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// ParseContacts decodes the stored contact list. A JSON array is the current
// format; anything else is read as legacy "name,number" lines, each assigned
// a fresh uuid. Entries that cannot be decoded are dropped.
func ParseContacts(raw string) []domain.Contact {
	raw = strings.TrimSpace(raw)
	switch detectFormat(raw) {
	case formatJSON:
		return parseJSONContacts(raw)
	case formatLegacy:
		return parseLegacyContacts(raw)
	default:
		return nil
	}
}

func detectFormat(raw string) contactsFormat {
	switch {
	case raw == "":
		return formatEmpty
	case strings.HasPrefix(raw, "["):
		return formatJSON
	default:
		return formatLegacy
	}
}

func parseJSONContacts(raw string) []domain.Contact {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	contacts := make([]domain.Contact, 0, len(items))
	for _, item := range items {
		var c domain.Contact
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts
}

func parseLegacyContacts(raw string) []domain.Contact {
	var contacts []domain.Contact
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		contacts = append(contacts, domain.Contact{
			UUID:   newUUID(),
			Name:   strings.TrimSpace(parts[0]),
			Number: strings.TrimSpace(parts[1]),
		})
	}
	return contacts
}
