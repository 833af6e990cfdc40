package sync

import (
	"reflect"
	"testing"

	"github.com/sakif/momentum-sync/internal/model"
)

func snapshotFixture() *model.Snapshot {
	return &model.Snapshot{
		Activities: []model.Activity{
			{ID: "act-1", Name: "Meditate", Order: 0},
			{ID: "act-2", Name: "Run", Order: 1},
		},
		Days: map[string]model.DayRecord{
			"2026-08-26": {Completed: []string{"act-1"}},
			"2026-08-27": {Completed: []string{"act-1", "act-2"}, Notes: "long day"},
		},
		Settings: model.Settings{"theme": "dark"},
	}
}

func TestDetectConflicts_IdenticalSnapshots(t *testing.T) {
	s := snapshotFixture()

	set := DetectConflicts(s, s)

	// Every activity id matches itself, every date is shared.
	if len(set.Activities) != len(s.Activities) {
		t.Errorf("activity conflicts = %d, want %d", len(set.Activities), len(s.Activities))
	}
	for _, c := range set.Activities {
		if c.Type != model.ActivityConflictID {
			t.Errorf("conflict for %s has type %q, want id", c.Imported.ID, c.Type)
		}
	}
	if len(set.Days) != len(s.Days) {
		t.Errorf("day conflicts = %d, want %d", len(set.Days), len(s.Days))
	}
	if !set.Settings {
		t.Error("settings conflict should be raised when local settings are non-empty")
	}
}

func TestDetectConflicts_NameMatch(t *testing.T) {
	local := &model.Snapshot{
		Activities: []model.Activity{{ID: "local-1", Name: "Meditate", Order: 0}},
		Days:       map[string]model.DayRecord{},
	}
	incoming := &model.Snapshot{
		Activities: []model.Activity{{ID: "remote-1", Name: "Meditate", Order: 0}},
		Days:       map[string]model.DayRecord{},
	}

	set := DetectConflicts(incoming, local)

	if len(set.Activities) != 1 {
		t.Fatalf("activity conflicts = %d, want 1", len(set.Activities))
	}
	if set.Activities[0].Type != model.ActivityConflictName {
		t.Errorf("conflict type = %q, want name", set.Activities[0].Type)
	}
	if set.Activities[0].Existing.ID != "local-1" || set.Activities[0].Imported.ID != "remote-1" {
		t.Errorf("conflict sides wrong: %+v", set.Activities[0])
	}
}

func TestDetectConflicts_NameMatchIsCaseSensitive(t *testing.T) {
	local := &model.Snapshot{
		Activities: []model.Activity{{ID: "local-1", Name: "meditate", Order: 0}},
		Days:       map[string]model.DayRecord{},
	}
	incoming := &model.Snapshot{
		Activities: []model.Activity{{ID: "remote-1", Name: "Meditate", Order: 0}},
		Days:       map[string]model.DayRecord{},
	}

	set := DetectConflicts(incoming, local)
	if len(set.Activities) != 0 {
		t.Errorf("differently-cased names should not conflict, got %+v", set.Activities)
	}
}

func TestDetectConflicts_DisjointSnapshots(t *testing.T) {
	local := &model.Snapshot{
		Activities: []model.Activity{{ID: "a", Name: "Stretch", Order: 0}},
		Days:       map[string]model.DayRecord{"2026-08-01": {}},
	}
	incoming := &model.Snapshot{
		Activities: []model.Activity{{ID: "b", Name: "Swim", Order: 0}},
		Days:       map[string]model.DayRecord{"2026-08-02": {}},
	}

	set := DetectConflicts(incoming, local)
	if len(set.Activities) != 0 || len(set.Days) != 0 {
		t.Errorf("disjoint snapshots should not conflict, got %+v", set)
	}
	if set.Settings {
		t.Error("settings conflict without local settings")
	}
	if !set.Empty() {
		t.Error("ConflictSet.Empty() should be true")
	}
}

func TestDetectConflicts_Pure(t *testing.T) {
	local := snapshotFixture()
	incoming := snapshotFixture()
	incoming.Activities[0].Name = "Meditate longer"

	first := DetectConflicts(incoming, local)
	second := DetectConflicts(incoming, local)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated detection on the same inputs differed")
	}
}

func TestConflictSetCount(t *testing.T) {
	set := model.ConflictSet{
		Activities: []model.ActivityConflict{{}, {}},
		Days:       []model.DayConflict{{}},
		Settings:   true,
	}
	if set.Count() != 4 {
		t.Errorf("Count() = %d, want 4", set.Count())
	}
}
