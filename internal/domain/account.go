package domain

import "bytes"

// AccountState is the latest observed state of an account.
// Upserted by Address; no history is retained.
type AccountState struct {
	Address    string
	Slot       uint64
	Lamports   uint64
	Owner      string
	Executable bool
	Data       []byte
	RentEpoch  uint64
}

// Clone returns a deep copy of the state.
func (a *AccountState) Clone() *AccountState {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// ChangedFrom reports whether lamports or data differ from prev.
// Other fields (slot, owner, rent epoch) are not considered a change.
func (a *AccountState) ChangedFrom(prev *AccountState) bool {
	if prev == nil {
		return false
	}
	return a.Lamports != prev.Lamports || !bytes.Equal(a.Data, prev.Data)
}
