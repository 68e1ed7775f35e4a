package cleanup

import (
	"sort"
	"time"

	"lte-sms-manager/internal/domain"
)

// Selection is the keep/delete partition of one inbox snapshot. Delete is
// ordered and free of duplicates; no id in Keep appears in Delete.
type Selection struct {
	Keep   []int
	Delete []int
}

type annotated struct {
	msg domain.Message
	ts  *time.Time
}

// SelectForDeletion returns the ids to delete under policy, evaluated now.
// DryRun does not change the result.
func SelectForDeletion(msgs []domain.Message, whitelist domain.Whitelist, policy domain.CleanupPolicy) []int {
	return Select(msgs, whitelist, policy, time.Now()).Delete
}

// Select partitions msgs. Whitelisted senders are always kept. Of the rest,
// the RetainCount newest are kept; when RetainDays is set, dated messages
// older than the cutoff are deleted first, then every other non-kept message
// is swept from oldest to newest.
func Select(msgs []domain.Message, whitelist domain.Whitelist, policy domain.CleanupPolicy, now time.Time) Selection {
	ordered := orderForRetention(msgs)

	keep := make(map[int]struct{}, len(ordered))
	var sel Selection
	kept := 0
	for _, a := range ordered {
		if whitelist.Has(a.msg.Sender) {
			sel.Keep = appendOnce(sel.Keep, keep, a.msg.ID)
			continue
		}
		if policy.RetainCount > 0 && kept < policy.RetainCount {
			if _, dup := keep[a.msg.ID]; !dup {
				kept++
			}
			sel.Keep = appendOnce(sel.Keep, keep, a.msg.ID)
		}
	}

	var candidates []int
	if policy.RetainDays > 0 {
		cutoff := now.UTC().AddDate(0, 0, -policy.RetainDays)
		for _, a := range ordered {
			if a.ts == nil || !a.ts.Before(cutoff) {
				continue
			}
			if deletable(a.msg, keep, whitelist) {
				candidates = append(candidates, a.msg.ID)
			}
		}
	}

	for i := len(ordered) - 1; i >= 0; i-- {
		if deletable(ordered[i].msg, keep, whitelist) {
			candidates = append(candidates, ordered[i].msg.ID)
		}
	}

	sel.Delete = dedupe(candidates)
	return sel
}

// orderForRetention sorts newest first. Messages without a usable timestamp
// go last, keeping their device order.
func orderForRetention(msgs []domain.Message) []annotated {
	out := make([]annotated, len(msgs))
	for i, m := range msgs {
		out[i] = annotated{msg: m}
		if m.Timestamp == nil {
			continue
		}
		if ts, ok := ParseTimestamp(*m.Timestamp); ok {
			out[i].ts = &ts
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ts, out[j].ts
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
	return out
}

func deletable(m domain.Message, keep map[int]struct{}, whitelist domain.Whitelist) bool {
	if whitelist.Has(m.Sender) {
		return false
	}
	_, kept := keep[m.ID]
	return !kept
}

func appendOnce(ids []int, seen map[int]struct{}, id int) []int {
	if _, ok := seen[id]; ok {
		return ids
	}
	seen[id] = struct{}{}
	return append(ids, id)
}

func dedupe(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
