package domain

// WatchEntry is a watch-list row. Entries are soft-deleted via Active=false
// and never physically removed.
type WatchEntry struct {
	Address     string
	DisplayName *string
	Active      bool
	CreatedAt   int64 // Unix seconds
}
