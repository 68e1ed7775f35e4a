package whitelist

import "lte-sms-manager/internal/domain"

// Resolve merges the stored numbers, the names and numbers of complete
// contacts, and the per-call override into one whitelist. Later sources only
// ever add entries.
func Resolve(stored []string, contacts []domain.Contact, override []string) domain.Whitelist {
	w := domain.NewWhitelist(stored...)
	for _, c := range contacts {
		if !c.Valid() {
			continue
		}
		w.Add(c.Number, c.Name)
	}
	w.Add(override...)
	return w
}

// FromSettings resolves the effective whitelist from a flat settings map and
// a per-call override.
func FromSettings(settings map[string]string, override []string) domain.Whitelist {
	return Resolve(
		ParseNumbers(settings[KeyNumbers]),
		ParseContacts(settings[KeyContacts]),
		override,
	)
}
