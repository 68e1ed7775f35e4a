package whitelist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lte-sms-manager/internal/domain"
)

var ErrContactNotFound = errors.New("whitelist: contact not found")

// ContactBook edits the stored contact list. Legacy entries are upgraded to
// the JSON format on the next Encode.
type ContactBook struct {
	contacts []domain.Contact
}

// LoadContactBook parses the raw contacts setting.
func LoadContactBook(raw string) *ContactBook {
	return &ContactBook{contacts: ParseContacts(raw)}
}

// Contacts returns a copy of the current entries.
func (b *ContactBook) Contacts() []domain.Contact {
	out := make([]domain.Contact, len(b.contacts))
	copy(out, b.contacts)
	return out
}

// Add appends a contact with a generated uuid.
func (b *ContactBook) Add(name, number string) (domain.Contact, error) {
	c := domain.Contact{
		UUID:   newUUID(),
		Name:   strings.TrimSpace(name),
		Number: strings.TrimSpace(number),
	}
	if !c.Valid() {
		return domain.Contact{}, errors.New("whitelist: contact name and number are required")
	}
	b.contacts = append(b.contacts, c)
	return c, nil
}

// Update replaces the name and number of the contact with the given uuid.
func (b *ContactBook) Update(id, name, number string) (domain.Contact, error) {
	name, number = strings.TrimSpace(name), strings.TrimSpace(number)
	if name == "" || number == "" {
		return domain.Contact{}, errors.New("whitelist: contact name and number are required")
	}
	for i := range b.contacts {
		if b.contacts[i].UUID != id {
			continue
		}
		b.contacts[i].Name = name
		b.contacts[i].Number = number
		return b.contacts[i], nil
	}
	return domain.Contact{}, fmt.Errorf("%w: %s", ErrContactNotFound, id)
}

// Remove deletes the contact with the given uuid.
func (b *ContactBook) Remove(id string) error {
	for i := range b.contacts {
		if b.contacts[i].UUID == id {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContactNotFound, id)
}

// Encode serializes the book into the stored JSON format.
func (b *ContactBook) Encode() (string, error) {
	contacts := b.contacts
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	raw, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("whitelist: encode contacts: %w", err)
	}
	return string(raw), nil
}
