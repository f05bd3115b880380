package solana

// Block represents a confirmed Solana block.
type Block struct {
	Slot         uint64
	Blockhash    string
	ParentSlot   uint64
	BlockHeight  *uint64
	BlockTime    *int64 // Unix seconds
	Transactions []Transaction
}

// Transaction represents a transaction inside a block.
type Transaction struct {
	Slot      uint64
	Signature string
	BlockTime *int64
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction status metadata.
type TransactionMeta struct {
	Err                  interface{}
	Fee                  uint64
	LogMessages          []string
	ComputeUnitsConsumed *uint64
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction is a compiled instruction referencing AccountKeys by index.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
}

// AccountInfo represents Solana account information with data decoded.
type AccountInfo struct {
	Slot       uint64 // context slot of the response
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}
