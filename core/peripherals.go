package core

// This file supplies minimal stand-ins for the peripherals spec.md §1 lists
// as out of scope, specified only by interface. They exist so Bus is
// constructible and testable on its own; a full emulator wires real Pad,
// DMA, GPU, MDEC, CDROM, SPU, and interrupt-controller implementations in
// their place. Grounded on the way the teacher's IO type owns the hardwired
// parts of a register contract directly (emu/io.go) rather than delegating
// them to a sub-object.

// NullPad satisfies Register32 and never asserts anything.
type NullPad struct{}

func (NullPad) ReadRegister(uint32) uint32          { return 0xFFFFFFFF }
func (NullPad) WriteRegister(uint32, uint32)        {}

// NullDMA satisfies Register32.
type NullDMA struct{}

func (NullDMA) ReadRegister(uint32) uint32   { return 0 }
func (NullDMA) WriteRegister(uint32, uint32) {}

// NullGPU satisfies Register32.
type NullGPU struct{}

func (NullGPU) ReadRegister(uint32) uint32   { return 0 }
func (NullGPU) WriteRegister(uint32, uint32) {}

// NullMDEC satisfies Register32.
type NullMDEC struct{}

func (NullMDEC) ReadRegister(uint32) uint32   { return 0 }
func (NullMDEC) WriteRegister(uint32, uint32) {}

// NullCDROM satisfies Register8.
type NullCDROM struct{}

func (NullCDROM) ReadRegister(uint32) uint8   { return 0xFF }
func (NullCDROM) WriteRegister(uint32, uint8) {}

// NullSPU satisfies Register16.
type NullSPU struct{}

func (NullSPU) ReadRegister(uint32) uint16   { return 0 }
func (NullSPU) WriteRegister(uint32, uint16) {}

// NullInterruptController satisfies InterruptController. RaiseIRQ is a
// no-op; callers that need to observe IRQ delivery should supply their own
// fake (see core/timers_test.go's recordingInterruptController).
type NullInterruptController struct{}

func (NullInterruptController) ReadRegister(uint32) uint32   { return 0 }
func (NullInterruptController) WriteRegister(uint32, uint32) {}
func (NullInterruptController) RaiseIRQ(IRQLine)             {}

// NullSystem satisfies System. Synchronize is a no-op (no outstanding tick
// debt to flush); SetDowncount discards the published deadline.
type NullSystem struct{}

func (NullSystem) Synchronize()         {}
func (NullSystem) SetDowncount(uint32) {}
