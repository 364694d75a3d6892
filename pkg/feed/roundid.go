package feed

import (
	"math"
	"math/big"
)

// Composite round-ID layout: a 16-bit phase field above a 64-bit local round
// field, 80 bits total. Composites are carried as big.Int values because they
// exceed the width of any machine integer.

const phaseShift = 64

var (
	phaseMask = big.NewInt(0xFFFF)
	localMask = new(big.Int).SetUint64(math.MaxUint64)
)

// Pack combines a phase id and a source-local round id into one composite
// round ID: (phase << 64) | local. It is pure and total; both inputs are
// recovered exactly by Unpack.
func Pack(phase PhaseID, local uint64) *big.Int {
	id := new(big.Int).SetUint64(uint64(phase))
	id.Lsh(id, phaseShift)
	return id.Or(id, new(big.Int).SetUint64(local))
}

// Unpack splits a composite round ID into its phase and local round fields.
// For any value produced by Pack it is the exact inverse. Externally supplied
// composites wider than 80 bits are truncated, not rejected: only the low 16
// bits of the shifted phase field and the low 64 bits of the round field are
// taken. Callers that need to reject oversized ids must do so before
// unpacking.
func Unpack(composite *big.Int) (PhaseID, uint64) {
	phase := new(big.Int).Rsh(composite, phaseShift)
	phase.And(phase, phaseMask)
	local := new(big.Int).And(composite, localMask)
	return PhaseID(phase.Uint64()), local.Uint64()
}
