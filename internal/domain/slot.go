package domain

// SlotStatus is the confirmation level of a slot.
type SlotStatus string

const (
	SlotStatusProcessed SlotStatus = "Processed"
	SlotStatusConfirmed SlotStatus = "Confirmed"
	SlotStatusFinalized SlotStatus = "Finalized"
)

// String returns the string representation of SlotStatus.
func (s SlotStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value.
func (s SlotStatus) IsValid() bool {
	return s == SlotStatusProcessed || s == SlotStatusConfirmed || s == SlotStatusFinalized
}

// Rank orders statuses Processed < Confirmed < Finalized.
func (s SlotStatus) Rank() int {
	switch s {
	case SlotStatusConfirmed:
		return 1
	case SlotStatusFinalized:
		return 2
	default:
		return 0
	}
}

// ParseSlotStatus maps a stored status string back to SlotStatus.
// Unknown values map to Processed.
func ParseSlotStatus(s string) SlotStatus {
	switch s {
	case string(SlotStatusFinalized):
		return SlotStatusFinalized
	case string(SlotStatusConfirmed):
		return SlotStatusConfirmed
	default:
		return SlotStatusProcessed
	}
}

// SlotRecord is a single unit of chain progress.
// Identity is Number; later records for the same number overwrite earlier ones.
type SlotRecord struct {
	Number      uint64
	Parent      *uint64
	Status      SlotStatus
	Timestamp   int64   // Unix seconds
	BlockHash   *string // nil when not fetched
	BlockHeight *uint64 // nil when not fetched
}

// Clone returns a deep copy of the record.
func (s *SlotRecord) Clone() *SlotRecord {
	if s == nil {
		return nil
	}
	c := *s
	if s.Parent != nil {
		p := *s.Parent
		c.Parent = &p
	}
	if s.BlockHash != nil {
		h := *s.BlockHash
		c.BlockHash = &h
	}
	if s.BlockHeight != nil {
		h := *s.BlockHeight
		c.BlockHeight = &h
	}
	return &c
}
