package domain

// Archive outcome labels for ArchivedEvent.
const (
	ArchiveOutcomeDispatched   = "dispatched"
	ArchiveOutcomeRateLimited  = "rate_limited"
	ArchiveOutcomeDeduplicated = "deduplicated"
	// Filter rejections are recorded as "filtered:<reason>".
	ArchiveOutcomeFilteredPrefix = "filtered:"
)

// ArchivedEvent is one decoded creation event with its pipeline outcome,
// as kept in the event archive.
type ArchivedEvent struct {
	Signature  string
	Mint       string
	Name       string
	Symbol     string
	URI        string
	Creator    string
	Slot       int64
	ObservedAt int64 // unix ms
	Outcome    string
}
