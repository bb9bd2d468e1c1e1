package transaction

// Intrinsic gas constants of the Thor protocol.
const (
	TxGas                     uint64 = 5000
	ClauseGas                 uint64 = 16000
	ClauseGasContractCreation uint64 = 48000
	TxDataZeroGas             uint64 = 4
	TxDataNonZeroGas          uint64 = 68
)

// IntrinsicGas returns the gas a transaction with the given clauses consumes
// before any execution. A transaction without clauses is charged as if it
// had one.
func IntrinsicGas(clauses ...Clause) uint64 {
	if len(clauses) == 0 {
		return TxGas + ClauseGas
	}
	var total = TxGas
	for i := range clauses {
		if clauses[i].IsCreatingContract() {
			total += ClauseGasContractCreation
		} else {
			total += ClauseGas
		}
		total += dataGas(clauses[i].Data)
	}
	return total
}

func dataGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += TxDataZeroGas
		} else {
			gas += TxDataNonZeroGas
		}
	}
	return gas
}
