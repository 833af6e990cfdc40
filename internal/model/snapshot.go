// Package model defines the data structures exchanged between devices during
// sync. A Snapshot is self-contained: everything one device knows about
// activities, day records, settings, and reminders travels inside it, with no
// external references. The local store owns the canonical Snapshot; the sync
// core only reads it or proposes a replacement wholesale.
package model

import (
	"sort"
	"time"
)

// DateKeyLayout is the calendar-date key format for day records: yyyy-mm-dd.
const DateKeyLayout = "2006-01-02"

// EveryDay is the ActiveDays sentinel meaning an activity applies to all
// seven days of the week.
const EveryDay = "all"

// Weekdays lists the valid ActiveDays labels, Monday first.
var Weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// Mood is the optional per-day mood annotation.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodAnxious Mood = "anxious"
	MoodCalm    Mood = "calm"
	MoodNeutral Mood = "neutral"
	MoodExcited Mood = "excited"
	MoodTired   Mood = "tired"
)

// Activity is one tracked habit. Identity is the ID; within one Snapshot all
// IDs are unique and Order values are dense 0..n-1.
type Activity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Order defines display and iteration order. Must be re-densified to
	// 0..n-1 after any mutation that adds or removes activities.
	Order int `json:"order"`
	// ActiveDays is either {EveryDay} or a non-empty subset of Weekdays.
	// An empty slice is treated as EveryDay for backwards compatibility
	// with exports that predate per-day scheduling.
	ActiveDays []string `json:"activeDays,omitempty"`
	// LastModified is epoch milliseconds of the last edit, 0 if untracked.
	// When present on both sides of a merge it decides which copy wins.
	LastModified int64 `json:"lastModified,omitempty"`
}

// DayRecord holds everything recorded for one calendar date. No record exists
// for a date until first write; absence means "no data", not "empty day".
type DayRecord struct {
	// Completed holds the ids of activities checked off that day. Ids of
	// since-deleted activities may linger — consumers filter defensively.
	Completed []string `json:"completed"`
	Notes     string   `json:"notes,omitempty"`
	Journal   string   `json:"journal,omitempty"`
	Mood      Mood     `json:"mood,omitempty"`
	// Energy is 1–5, 0 when unset.
	Energy       int   `json:"energy,omitempty"`
	LastModified int64 `json:"lastModified,omitempty"`
}

// Reminder is a scheduled nudge. For merge purposes its identity is the
// (Time, Label) pair, not the ID: two reminders created independently on two
// devices with the same time and label are the same logical reminder.
type Reminder struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Time    string `json:"time"` // "HH:MM", 24-hour
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

// Settings is the free-form app configuration object. Sync treats it as an
// opaque whole: conflicts are all-or-nothing, merges replace or keep it in
// one piece, never per key.
type Settings map[string]any

// SyncMetadata is attached to a Snapshot at export time.
type SyncMetadata struct {
	DeviceInfo string `json:"deviceInfo"`
	ExportedAt int64  `json:"exportedAt"` // epoch ms
	// Checksum is the first 8 hex chars of a sha256 over the snapshot with
	// metadata cleared. Informational cross-check only — AEAD is the real
	// integrity mechanism.
	Checksum string `json:"checksum"`
}

// Snapshot is the unit exchanged between devices.
type Snapshot struct {
	Activities []Activity           `json:"activities"`
	Days       map[string]DayRecord `json:"dailyData"`
	Settings   Settings             `json:"settings,omitempty"`
	Reminders  []Reminder           `json:"reminders,omitempty"`
	Metadata   *SyncMetadata        `json:"syncMetadata,omitempty"`
	Version    string               `json:"version,omitempty"`
}

// SyncMapping links a sync code to the remote blob holding the export.
// It lives only in the exporting device's local store and is never
// transmitted.
type SyncMapping struct {
	Code      string `json:"code"`   // normalized 8-char form
	BlobID    string `json:"blobId"` // remote identifier
	CreatedAt int64  `json:"createdAt"` // epoch ms
	ExpiresAt int64  `json:"expiresAt"` // CreatedAt + 48h
}

// Expired reports whether the mapping is past its expiry at the given time.
func (m SyncMapping) Expired(now time.Time) bool {
	return m.ExpiresAt < now.UnixMilli()
}

// HistoryEntry records one export or import for the device's sync history.
type HistoryEntry struct {
	ID         string `json:"id"`
	Type       string `json:"type"` // "export" or "import"
	SyncCode   string `json:"syncCode,omitempty"`
	Timestamp  int64  `json:"timestamp"` // epoch ms
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

// ReminderKey returns the logical identity of a reminder for merging.
func ReminderKey(r Reminder) string {
	return r.Time + "\x00" + r.Label
}

// DensifyOrder sorts activities by their Order field (stable, so existing
// relative order of ties is kept) and reassigns Order to 0..n-1. Called after
// every mutation or merge that can leave gaps.
func DensifyOrder(activities []Activity) []Activity {
	out := make([]Activity, len(activities))
	copy(out, activities)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Clone returns a deep copy of the snapshot. Merge and checksum code operate
// on copies so the caller's snapshot is never mutated.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Version: s.Version}

	if s.Activities != nil {
		out.Activities = make([]Activity, len(s.Activities))
		for i, a := range s.Activities {
			out.Activities[i] = a
			if a.ActiveDays != nil {
				out.Activities[i].ActiveDays = append([]string(nil), a.ActiveDays...)
			}
		}
	}

	if s.Days != nil {
		out.Days = make(map[string]DayRecord, len(s.Days))
		for k, d := range s.Days {
			if d.Completed != nil {
				d.Completed = append([]string(nil), d.Completed...)
			}
			out.Days[k] = d
		}
	}

	if s.Settings != nil {
		out.Settings = make(Settings, len(s.Settings))
		for k, v := range s.Settings {
			out.Settings[k] = v
		}
	}

	if s.Reminders != nil {
		out.Reminders = append([]Reminder(nil), s.Reminders...)
	}

	if s.Metadata != nil {
		md := *s.Metadata
		out.Metadata = &md
	}

	return out
}

// FormatDateKey renders a time as a day-record map key.
func FormatDateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a day-record map key, reporting whether it is valid.
func ParseDateKey(key string) (time.Time, bool) {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
