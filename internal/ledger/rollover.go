package ledger

import (
	"moomoney/internal/core"
)

// RolloverState is the controller's position in the archive-then-reset
// state machine. Both non-stable states resolve back to Stable through a
// user decision.
type RolloverState int

const (
	// RolloverStable: the active bucket's month matches the calendar.
	RolloverStable RolloverState = iota
	// RolloverDriftDetected: the calendar moved past the bucket's month;
	// the user has been offered archive-and-reset.
	RolloverDriftDetected
	// RolloverManualPending: a row's date was edited into a different
	// month; the edit is held until the user confirms or cancels.
	RolloverManualPending
)

func (s RolloverState) String() string {
	switch s {
	case RolloverDriftDetected:
		return "drift_detected"
	case RolloverManualPending:
		return "manual_pending"
	default:
		return "stable"
	}
}

// DriftPrompt describes a detected calendar drift: the bucket still holds
// Outgoing while the wall clock reached Current.
type DriftPrompt struct {
	Outgoing core.MonthKey `json:"outgoing"`
	Current  core.MonthKey `json:"current"`
}

// PendingEdit holds a date edit that would move the active bucket into a
// different month. The edit is not applied until confirmed; cancelling
// discards it and leaves the bucket untouched.
type PendingEdit struct {
	RowID int64         `json:"row_id"`
	Date  core.Date     `json:"date"`
	Month core.MonthKey `json:"month"`
}

// View is the tagged currently-viewed-bucket selector: either the active
// bucket or one archive, opened for viewing and in-place editing. Opening
// an archive does not remove it from the store.
type View struct {
	Archive   bool  `json:"archive"`
	ArchiveID int64 `json:"archive_id,omitempty"`
}

// ActiveView selects the active bucket.
var ActiveView = View{}

// ArchiveView selects one archive by ID.
func ArchiveView(id int64) View {
	return View{Archive: true, ArchiveID: id}
}
