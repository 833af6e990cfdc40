package sync

import (
	"fmt"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/model"
)

// noteSeparator joins both sides' notes when a day record is merged
// item-by-item from the resolution UI.
const noteSeparator = " | "

// Merge combines two snapshots under the chosen strategy. Referentially
// transparent: no wall clock, no randomness — the only timestamps consulted
// are the LastModified fields the entities themselves carry. Neither input
// is mutated.
//
// The three strategies:
//   - replace: the incoming snapshot, entirely.
//   - keep-local: the local snapshot, entirely.
//   - merge: per-domain rules, see mergeActivities, mergeDays, mergeReminders.
//
// resolutions, when non-nil, carries per-item decisions from an interactive
// conflict UI and overrides the default rule for the items it names.
func Merge(local, incoming *model.Snapshot, strategy model.Strategy, resolutions *model.Resolutions) (*model.Snapshot, error) {
	if !strategy.Valid() {
		return nil, apperror.ValidationFailed("strategy",
			fmt.Sprintf("unknown merge strategy %q", strategy))
	}

	switch strategy {
	case model.StrategyReplace:
		out := incoming.Clone()
		return &out, nil
	case model.StrategyKeepLocal:
		out := local.Clone()
		return &out, nil
	}

	if resolutions == nil {
		resolutions = &model.Resolutions{}
	}

	out := &model.Snapshot{
		Activities: mergeActivities(local.Activities, incoming.Activities, resolutions.Activities),
		Days:       mergeDays(local.Days, incoming.Days, resolutions.Days),
		Reminders:  mergeReminders(local.Reminders, incoming.Reminders),
		Settings:   mergeSettings(local.Settings, incoming.Settings, resolutions.Settings),
		Version:    local.Version,
	}
	if out.Version == "" {
		out.Version = incoming.Version
	}

	return out, nil
}

// mergeActivities unions the two activity lists by id. An id present on both
// sides is resolved by LastModified when both copies carry one; otherwise the
// incoming copy wins (the remote export is assumed newer). A per-item
// resolution, keyed by the imported activity's id, overrides that default:
// skip keeps the local copy (or drops a new import outright), overwrite takes
// the imported copy even over a same-named local activity with a different id.
// Order is re-densified to 0..n-1 over the survivors.
func mergeActivities(local, incoming []model.Activity, resolutions map[string]model.Resolution) []model.Activity {
	merged := make([]model.Activity, len(local))
	copy(merged, local)

	index := make(map[string]int, len(local)) // id → position in merged
	nameIndex := make(map[string]int, len(local))
	for i, a := range local {
		index[a.ID] = i
		nameIndex[a.Name] = i
	}

	for _, imp := range incoming {
		decision := resolutions[imp.ID]

		if i, ok := index[imp.ID]; ok {
			switch decision {
			case model.ResolutionSkip:
				// keep local
			case model.ResolutionOverwrite:
				merged[i] = imp
			default:
				if incomingActivityWins(merged[i], imp) {
					merged[i] = imp
				}
			}
			continue
		}

		if decision == model.ResolutionSkip {
			continue
		}
		if decision == model.ResolutionOverwrite {
			if i, ok := nameIndex[imp.Name]; ok {
				merged[i] = imp
				continue
			}
		}
		merged = append(merged, imp)
	}

	return model.DensifyOrder(merged)
}

// incomingActivityWins applies the timestamp rule for an id clash.
func incomingActivityWins(local, incoming model.Activity) bool {
	if local.LastModified > 0 && incoming.LastModified > 0 {
		return incoming.LastModified > local.LastModified
	}
	return true
}

// mergeDays unions the two day-record maps by date. For a shared date the
// newer record (by LastModified when both are tracked, local otherwise) is
// the base, but the completed-id sets of both sides are always unioned —
// a merge never silently un-completes an activity. Per-item resolutions,
// keyed by date, override: skip keeps the local record untouched, overwrite
// takes the imported record as-is, merge additionally joins the notes of
// both sides.
func mergeDays(local, incoming map[string]model.DayRecord, resolutions map[string]model.Resolution) map[string]model.DayRecord {
	merged := make(map[string]model.DayRecord, len(local)+len(incoming))
	for key, rec := range local {
		merged[key] = cloneDayRecord(rec)
	}

	for key, imp := range incoming {
		existing, shared := merged[key]
		if !shared {
			merged[key] = cloneDayRecord(imp)
			continue
		}

		switch resolutions[key] {
		case model.ResolutionSkip:
			// keep local
		case model.ResolutionOverwrite:
			merged[key] = cloneDayRecord(imp)
		case model.ResolutionMerge:
			base := pickDayBase(existing, imp)
			base.Completed = unionCompleted(existing.Completed, imp.Completed)
			base.Notes = joinNotes(existing.Notes, imp.Notes)
			merged[key] = base
		default:
			base := pickDayBase(existing, imp)
			base.Completed = unionCompleted(existing.Completed, imp.Completed)
			merged[key] = base
		}
	}

	return merged
}

// pickDayBase applies the timestamp rule for a shared date: newer wins when
// both records track LastModified, the local record otherwise.
func pickDayBase(local, incoming model.DayRecord) model.DayRecord {
	if local.LastModified > 0 && incoming.LastModified > 0 &&
		incoming.LastModified > local.LastModified {
		return cloneDayRecord(incoming)
	}
	return cloneDayRecord(local)
}

// unionCompleted merges two completed-id sets, keeping first-seen order
// (all of a's ids, then b's new ones) so the result is deterministic.
func unionCompleted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// joinNotes concatenates both sides' notes with a separator, skipping empty
// sides and identical text.
func joinNotes(local, incoming string) string {
	switch {
	case local == "":
		return incoming
	case incoming == "" || incoming == local:
		return local
	default:
		return local + noteSeparator + incoming
	}
}

// mergeReminders unions by logical identity (time, label), incoming wins on
// duplicates. Local order is preserved; new incoming reminders are appended
// in their own order.
func mergeReminders(local, incoming []model.Reminder) []model.Reminder {
	if len(local) == 0 && len(incoming) == 0 {
		return nil
	}

	merged := append([]model.Reminder(nil), local...)
	index := make(map[string]int, len(local))
	for i, r := range local {
		index[model.ReminderKey(r)] = i
	}

	for _, imp := range incoming {
		if i, ok := index[model.ReminderKey(imp)]; ok {
			merged[i] = imp
			continue
		}
		merged = append(merged, imp)
	}

	return merged
}

// mergeSettings keeps the local settings object untouched unless the caller
// explicitly chose to take the incoming one. Settings never merge per key.
func mergeSettings(local, incoming model.Settings, resolution model.Resolution) model.Settings {
	chosen := local
	if resolution == model.ResolutionOverwrite || len(local) == 0 {
		chosen = incoming
	}
	if chosen == nil {
		return nil
	}
	out := make(model.Settings, len(chosen))
	for k, v := range chosen {
		out[k] = v
	}
	return out
}

func cloneDayRecord(rec model.DayRecord) model.DayRecord {
	if rec.Completed != nil {
		rec.Completed = append([]string(nil), rec.Completed...)
	}
	return rec
}
