package domain

import "time"

const (
	EventInboxListed     = "lte_sms_manager_inbox_listed"
	EventCleanupComplete = "lte_sms_manager_cleanup_complete"
)

// Event payload attribute names.
const (
	AttrHost         = "host"
	AttrMessages     = "messages"
	AttrWhitelist    = "whitelist"
	AttrDryRun       = "dry_run"
	AttrCountDeleted = "count_deleted"
)

// Event is an outcome published by the command layer.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Host       string         `json:"host"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// InboxListedData builds the payload of an inbox listing event.
func InboxListedData(host string, msgs []Message) map[string]any {
	return map[string]any{
		AttrHost:     host,
		AttrMessages: Records(msgs),
	}
}

// CleanupData builds the payload of a cleanup event. The message id list is
// only included when there was something to delete.
func CleanupData(res CleanupResult) map[string]any {
	data := map[string]any{
		AttrHost:         res.Host,
		AttrCountDeleted: res.CountDeleted,
		AttrWhitelist:    res.WhitelistUsed.Sorted(),
		AttrDryRun:       res.DryRun,
	}
	if len(res.DeletedIDs) > 0 {
		data[AttrMessages] = res.DeletedIDs
	}
	return data
}

// HostActivity summarizes the most recent event published for a host.
type HostActivity struct {
	Host          string    `json:"host"`
	LastEventID   string    `json:"last_event_id"`
	LastEventType string    `json:"last_event_type"`
	LastEventAt   time.Time `json:"last_event_at"`
}
