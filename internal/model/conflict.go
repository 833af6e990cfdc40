package model

// ActivityConflictType says why an imported activity clashed with a local one.
type ActivityConflictType string

const (
	// ActivityConflictID: both sides have an activity with the same id.
	ActivityConflictID ActivityConflictType = "id"
	// ActivityConflictName: different ids but the exact same name.
	ActivityConflictName ActivityConflictType = "name"
)

// ActivityConflict carries both versions of a clashing activity so the UI can
// show them side by side.
type ActivityConflict struct {
	Type     ActivityConflictType `json:"type"`
	Imported Activity             `json:"imported"`
	Existing Activity             `json:"existing"`
}

// DayConflict is a date present in both the incoming and the local snapshot.
type DayConflict struct {
	DateKey  string    `json:"dateKey"`
	Imported DayRecord `json:"imported"`
	Existing DayRecord `json:"existing"`
}

// ConflictSet is the output of conflict detection across the three data
// domains. Settings conflicts carry no payload: the settings object is
// resolved as a unit, keep-local or take-incoming, never per key.
type ConflictSet struct {
	Activities []ActivityConflict `json:"activities"`
	Days       []DayConflict      `json:"dailyData"`
	Settings   bool               `json:"settings"`
}

// Count returns the number of items the resolution UI will present.
func (c ConflictSet) Count() int {
	n := len(c.Activities) + len(c.Days)
	if c.Settings {
		n++
	}
	return n
}

// Empty reports whether the import can be applied without asking the user.
func (c ConflictSet) Empty() bool {
	return c.Count() == 0
}

// Strategy is the global merge strategy chosen by the user.
type Strategy string

const (
	// StrategyReplace: result is the incoming snapshot, entirely.
	StrategyReplace Strategy = "replace"
	// StrategyKeepLocal: result is the local snapshot, incoming is discarded.
	StrategyKeepLocal Strategy = "keep-local"
	// StrategyMerge: per-domain smart merge.
	StrategyMerge Strategy = "merge"
)

// Valid reports whether s is one of the three known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyReplace, StrategyKeepLocal, StrategyMerge:
		return true
	}
	return false
}

// Resolution is a per-item decision from the interactive conflict UI.
type Resolution string

const (
	// ResolutionSkip keeps the existing item and drops the imported one.
	ResolutionSkip Resolution = "skip"
	// ResolutionOverwrite takes the imported item in place of the existing one.
	ResolutionOverwrite Resolution = "overwrite"
	// ResolutionMerge combines both sides. Only meaningful for day records,
	// where it unions completed ids and concatenates notes.
	ResolutionMerge Resolution = "merge"
)

// Resolutions overrides the merge engine's default per-item decisions.
// Keys are activity ids and day-record date keys. A missing key falls back
// to the strategy's default behavior for that domain.
type Resolutions struct {
	Activities map[string]Resolution `json:"activities,omitempty"`
	Days       map[string]Resolution `json:"dailyData,omitempty"`
	// Settings is ResolutionSkip (keep local) or ResolutionOverwrite
	// (take incoming). Empty means keep local.
	Settings Resolution `json:"settings,omitempty"`
}
