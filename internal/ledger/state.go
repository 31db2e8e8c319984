package ledger

import (
	"context"
)

// Persisted state keys. Each key is stored as an independent JSON value and
// loads independently: a missing or corrupt value falls back to its default
// without affecting the other keys.
const (
	KeyBudget          = "budget"
	KeyCutoffDay       = "cutoff_day"
	KeyTheme           = "theme"
	KeyCategories      = "categories"
	KeyVisibleBudgets  = "visible_budget_cats"
	KeyLastActiveMonth = "last_active_month"
	KeyArchives        = "archives"
	KeyCategoryBudgets = "category_budgets"
	KeyExpenses        = "expenses"
)

// StateStore persists key→JSON state write-through. Load reports whether
// the key existed; decode failures are the store's to log and report as
// not-found so the caller substitutes its default.
type StateStore interface {
	Load(ctx context.Context, key string, v any) (bool, error)
	Save(ctx context.Context, key string, v any) error
}

// EventPublisher emits best-effort change events for external observers
// (the sheets mirror worker). A nil publisher is valid and means events
// are skipped; publish failures never affect engine state.
type EventPublisher interface {
	PublishArchiveCreated(ctx context.Context, month string, reason string) error
	PublishBucketChanged(ctx context.Context, month string) error
}

// Themes the settings surface accepts. The theme is a stored preference
// only; nothing in the engine renders it.
var Themes = []string{"pink", "blue", "green", "purple", "orange"}

// DefaultTheme is used on first run and when a persisted theme is invalid.
const DefaultTheme = "pink"

// ValidTheme reports whether name is an accepted theme key.
func ValidTheme(name string) bool {
	return containsString(Themes, name)
}
