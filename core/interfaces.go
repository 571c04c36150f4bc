package core

// IRQLine identifies one of the interrupt controller's input lines. The
// core only ever drives the three timer lines; the controller itself
// defines the full set out of scope.
type IRQLine uint32

const (
	IRQTimer0 IRQLine = iota
	IRQTimer1
	IRQTimer2
)

// Register32 is a 32-bit-register peripheral reachable through the bus:
// Pad, DMA, GPU, MDEC, and the Bus's own Timers all satisfy it. Narrow
// (byte/half) accesses to a Register32 peripheral are remapped by the bus
// per region policy (shift-fixup for DMA/Timers/IRQ, unmodified forward for
// Pad, strict word-only for GPU/MDEC).
type Register32 interface {
	ReadRegister(offset uint32) uint32
	WriteRegister(offset uint32, value uint32)
}

// Register16 is a 16-bit-native register peripheral. The SPU is the only
// one in this address map; a 32-bit access is split by the bus into two
// consecutive 16-bit accesses.
type Register16 interface {
	ReadRegister(offset uint32) uint16
	WriteRegister(offset uint32, value uint16)
}

// Register8 is a byte-only register peripheral. The CDROM is the only one
// in this address map; wider accesses are an AssertionViolation.
type Register8 interface {
	ReadRegister(offset uint32) uint8
	WriteRegister(offset uint32, value uint8)
}

// InterruptController is the consumed collaborator from spec.md §6: its
// register file is reachable through the bus (IRQ region) and it exposes
// one out-of-band entry point, RaiseIRQ, that Timers calls directly when an
// interrupt condition fires.
type InterruptController interface {
	Register32
	RaiseIRQ(line IRQLine)
}

// System is the consumed scheduler collaborator: Synchronize flushes
// outstanding tick debt into Timers.Execute before a register access is
// serviced; SetDowncount publishes the next guaranteed timer event.
type System interface {
	Synchronize()
	SetDowncount(ticks uint32)
}
