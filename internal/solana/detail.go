package solana

import "solana-indexer/internal/domain"

// ExtractDetail builds a TransactionDetail from a block transaction.
// fallbackTime is used when the block carries no block time.
func ExtractDetail(tx *Transaction, fallbackTime int64) domain.TransactionDetail {
	d := domain.TransactionDetail{
		Signature: tx.Signature,
		Slot:      tx.Slot,
		Program:   domain.UnknownProgram,
		Timestamp: fallbackTime,
	}
	if tx.BlockTime != nil {
		d.Timestamp = *tx.BlockTime
	}

	if tx.Meta != nil {
		d.Success = tx.Meta.Err == nil
		d.Fee = tx.Meta.Fee
		d.InstructionCount = len(tx.Meta.LogMessages)
		if tx.Meta.ComputeUnitsConsumed != nil {
			d.ComputeUnits = *tx.Meta.ComputeUnitsConsumed
		}
	}

	if tx.Message != nil {
		d.Accounts = append([]string(nil), tx.Message.AccountKeys...)
		d.Program = invokedProgram(tx.Message)
	}

	return d
}

// invokedProgram resolves the first instruction's program, falling back to
// the first account key.
func invokedProgram(msg *TransactionMessage) string {
	if len(msg.Instructions) > 0 {
		idx := msg.Instructions[0].ProgramIDIndex
		if idx >= 0 && idx < len(msg.AccountKeys) {
			return msg.AccountKeys[idx]
		}
	}
	if len(msg.AccountKeys) > 0 {
		return msg.AccountKeys[0]
	}
	return domain.UnknownProgram
}
