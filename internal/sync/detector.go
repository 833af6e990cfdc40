package sync

import (
	"sort"

	"github.com/sakif/momentum-sync/internal/model"
)

// DetectConflicts compares an incoming snapshot against the local one and
// classifies every clash across the three data domains. Pure: no side
// effects, same inputs always give the same ConflictSet.
//
// Activities: an incoming activity conflicts when a local one shares its id,
// or failing that, its exact name. Day records: any date present on both
// sides is a conflict carrying both versions. Settings: a single coarse flag,
// raised whenever the device has any settings at all — the resolution UI
// always treats settings as one unit, keep-local or take-incoming.
func DetectConflicts(incoming, local *model.Snapshot) model.ConflictSet {
	var set model.ConflictSet

	byID := make(map[string]model.Activity, len(local.Activities))
	byName := make(map[string]model.Activity, len(local.Activities))
	for _, a := range local.Activities {
		byID[a.ID] = a
		byName[a.Name] = a
	}

	for _, imported := range incoming.Activities {
		if existing, ok := byID[imported.ID]; ok {
			set.Activities = append(set.Activities, model.ActivityConflict{
				Type:     model.ActivityConflictID,
				Imported: imported,
				Existing: existing,
			})
			continue
		}
		if existing, ok := byName[imported.Name]; ok {
			set.Activities = append(set.Activities, model.ActivityConflict{
				Type:     model.ActivityConflictName,
				Imported: imported,
				Existing: existing,
			})
		}
	}

	// Sorted date keys keep the conflict list stable across calls; map
	// iteration order would shuffle it.
	shared := make([]string, 0, len(incoming.Days))
	for key := range incoming.Days {
		if _, ok := local.Days[key]; ok {
			shared = append(shared, key)
		}
	}
	sort.Strings(shared)
	for _, key := range shared {
		set.Days = append(set.Days, model.DayConflict{
			DateKey:  key,
			Imported: incoming.Days[key],
			Existing: local.Days[key],
		})
	}

	set.Settings = len(local.Settings) > 0

	return set
}
