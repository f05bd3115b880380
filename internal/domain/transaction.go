package domain

// TransactionRecord is the durable form of a transaction.
// Corresponds to the transactions table.
type TransactionRecord struct {
	Signature string   // unique id
	Slot      uint64   // slot the transaction landed in
	BlockTime *int64   // Unix seconds, nil when unknown
	Fee       uint64   // lamports
	Success   bool     // meta.err == null
	Accounts  []string // ordered account keys
}

// Clone returns a deep copy of the record.
func (t *TransactionRecord) Clone() *TransactionRecord {
	if t == nil {
		return nil
	}
	c := *t
	if t.BlockTime != nil {
		bt := *t.BlockTime
		c.BlockTime = &bt
	}
	c.Accounts = append([]string(nil), t.Accounts...)
	return &c
}

// TransactionDetail is the richer, transient form handed to consumers.
// Only its TransactionRecord subset is persisted.
type TransactionDetail struct {
	Signature        string
	Slot             uint64
	Success          bool
	Fee              uint64
	Program          string // first invoked program, "Unknown" if unresolved
	InstructionCount int
	ComputeUnits     uint64
	Accounts         []string
	Timestamp        int64 // Unix seconds
}

// UnknownProgram is used when the invoked program cannot be resolved.
const UnknownProgram = "Unknown"

// Record returns the durable subset of the detail.
func (d *TransactionDetail) Record() *TransactionRecord {
	blockTime := d.Timestamp
	return &TransactionRecord{
		Signature: d.Signature,
		Slot:      d.Slot,
		BlockTime: &blockTime,
		Fee:       d.Fee,
		Success:   d.Success,
		Accounts:  append([]string(nil), d.Accounts...),
	}
}
