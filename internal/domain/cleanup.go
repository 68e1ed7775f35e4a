package domain

const (
	DefaultRetainCount = 24
	DefaultRetainDays  = 0
	DefaultDryRun      = true
)

// CleanupPolicy controls which messages a cleanup run keeps. Zero values
// disable the corresponding retention rule.
type CleanupPolicy struct {
	RetainCount int
	RetainDays  int
	DryRun      bool
}

// DefaultCleanupPolicy returns the policy applied when a caller sets nothing.
func DefaultCleanupPolicy() CleanupPolicy {
	return CleanupPolicy{
		RetainCount: DefaultRetainCount,
		RetainDays:  DefaultRetainDays,
		DryRun:      DefaultDryRun,
	}
}

// CleanupResult is the outcome of one cleanup invocation. DeletedIDs is nil
// when nothing qualified for deletion.
type CleanupResult struct {
	Host          string
	CountDeleted  int
	DeletedIDs    []int
	WhitelistUsed Whitelist
	DryRun        bool
}
