package model

// TimeLedger maps a player to accumulated on-court milliseconds
type TimeLedger map[PlayerID]int64

// Clone returns a copy of the ledger
func (l TimeLedger) Clone() TimeLedger {
	out := make(TimeLedger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// PlusMinusLedger maps a player to a signed running plus/minus total
type PlusMinusLedger map[PlayerID]int

// Clone returns a copy of the ledger
func (l PlusMinusLedger) Clone() PlusMinusLedger {
	out := make(PlusMinusLedger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Total returns the sum across all players
func (l PlusMinusLedger) Total() int {
	sum := 0
	for _, v := range l {
		sum += v
	}
	return sum
}
