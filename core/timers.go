package core

import "math"

// NumTimers is the number of independent hardware counters.
const NumTimers = 3

// SyncMode selects how a timer's gate input coordinates with counting,
// active only while the mode register's sync_enable bit is set.
type SyncMode uint8

const (
	// PauseOnGate pauses counting while the gate is high.
	PauseOnGate SyncMode = iota
	// ResetOnGate resets the counter to 0 on the gate's rising edge;
	// counting continues regardless of gate level.
	ResetOnGate
	// ResetAndRunOnGate resets the counter to 0 on the gate's rising edge
	// and only counts while the gate is high.
	ResetAndRunOnGate
	// FreeRunOnGate disarms sync_enable on the first rising edge, after
	// which the timer free-runs.
	FreeRunOnGate
)

// mode is the packed configuration word described in spec.md §3/§6: 13
// bits, the two sticky flag bits among them, modeled as an opaque uint16 with
// named accessors rather than a bitfield union, per design note §9.
type mode uint16

const (
	modeBitSyncEnable      = 0
	modeBitSyncModeLo      = 1 // 2 bits: sync_mode
	modeBitResetAtTarget   = 3
	modeBitIRQAtTarget     = 4
	modeBitIRQOnOverflow   = 5
	modeBitIRQRepeat       = 6
	modeBitIRQPulseN       = 7
	modeBitClockSourceLo   = 8 // 2 bits: clock_source
	modeBitInterruptReqN   = 10
	modeBitReachedTarget   = 11
	modeBitReachedOverflow = 12

	modeWriteMask = 0x1FFF // the 13 bits a register write actually sets
)

func (m mode) bit(n uint) bool      { return m&(1<<n) != 0 }
func (m mode) setBit(n uint, v bool) mode {
	if v {
		return m | (1 << n)
	}
	return m &^ (1 << n)
}

func (m mode) syncEnable() bool    { return m.bit(modeBitSyncEnable) }
func (m mode) syncMode() SyncMode  { return SyncMode((m >> modeBitSyncModeLo) & 3) }
func (m mode) resetAtTarget() bool { return m.bit(modeBitResetAtTarget) }
func (m mode) irqAtTarget() bool   { return m.bit(modeBitIRQAtTarget) }
func (m mode) irqOnOverflow() bool { return m.bit(modeBitIRQOnOverflow) }
func (m mode) irqRepeat() bool     { return m.bit(modeBitIRQRepeat) }
func (m mode) irqPulseN() bool     { return m.bit(modeBitIRQPulseN) }
func (m mode) clockSource() uint16 { return uint16((m >> modeBitClockSourceLo) & 3) }
func (m mode) interruptRequestN() bool   { return m.bit(modeBitInterruptReqN) }
func (m mode) reachedTarget() bool       { return m.bit(modeBitReachedTarget) }
func (m mode) reachedOverflow() bool     { return m.bit(modeBitReachedOverflow) }

func (m mode) withInterruptRequestN(v bool) mode { return m.setBit(modeBitInterruptReqN, v) }
func (m mode) withReachedTarget(v bool) mode     { return m.setBit(modeBitReachedTarget, v) }
func (m mode) withReachedOverflow(v bool) mode   { return m.setBit(modeBitReachedOverflow, v) }

// CounterState is the state of one of the three hardware counters.
type CounterState struct {
	mode   mode
	counter uint32 // held wide for overflow detection during AddTicks
	target  uint16
	gate    bool

	useExternalClock         bool
	countingEnabled          bool
	externalCountingEnabled  bool
	irqDone                  bool
}

// Timers implements the three-counter state machine described in
// spec.md §4.1, grounded on original_source/src/core/timers.cpp.
type Timers struct {
	states [NumTimers]CounterState

	sysclkDiv8Carry uint32 // 0..7, carries sub-divisor ticks for timer 2

	system   System
	irqCtrl  InterruptController
	log      Logger
}

// NewTimers constructs a Timers in its reset state. Initialize must still
// be called before use to record the System and InterruptController
// collaborators.
func NewTimers() *Timers {
	t := &Timers{log: nullLogger{}}
	t.Reset()
	return t
}

// Initialize records the System and InterruptController collaborators.
// Infallible.
func (t *Timers) Initialize(system System, irqCtrl InterruptController) {
	t.system = system
	t.irqCtrl = irqCtrl
}

// SetLogger overrides the default (silent) logger.
func (t *Timers) SetLogger(l Logger) {
	if l == nil {
		l = nullLogger{}
	}
	t.log = l
}

// Reset sets every field to its defined initial state.
func (t *Timers) Reset() {
	for i := range t.states {
		t.states[i] = CounterState{
			countingEnabled: true,
		}
	}
	t.sysclkDiv8Carry = 0
}

// SetGate drives timer i's external gate input. Idempotent when the state
// does not change.
func (t *Timers) SetGate(i uint32, state bool) {
	cs := &t.states[i]
	if cs.gate == state {
		return
	}
	cs.gate = state

	if cs.mode.syncEnable() {
		if state {
			switch cs.mode.syncMode() {
			case ResetOnGate, ResetAndRunOnGate:
				cs.counter = 0
			case FreeRunOnGate:
				cs.mode = cs.mode.setBit(modeBitSyncEnable, false)
			}
		}
		t.updateCountingEnabled(cs)
	}
}

// updateCountingEnabled recomputes countingEnabled/externalCountingEnabled
// per spec.md §4.1's UpdateCountingEnabled table.
func (t *Timers) updateCountingEnabled(cs *CounterState) {
	if cs.mode.syncEnable() {
		switch cs.mode.syncMode() {
		case PauseOnGate, FreeRunOnGate:
			cs.countingEnabled = !cs.gate
		case ResetOnGate:
			cs.countingEnabled = true
		case ResetAndRunOnGate:
			cs.countingEnabled = cs.gate
		}
	} else {
		cs.countingEnabled = true
	}

	cs.externalCountingEnabled = cs.useExternalClock && cs.countingEnabled
}

// AddTicks advances timer i by a nonnegative tick count, possibly raising
// an IRQ and updating the sticky reached_target/reached_overflow flags.
func (t *Timers) AddTicks(i uint32, ticks uint32) {
	cs := &t.states[i]
	old := cs.counter
	newVal := cs.counter + ticks

	interruptRequest := false
	if newVal >= uint32(cs.target) && old < uint32(cs.target) {
		interruptRequest = cs.mode.irqAtTarget()
		cs.mode = cs.mode.withReachedTarget(true)
	}
	if newVal >= 0xFFFF {
		interruptRequest = interruptRequest || cs.mode.irqOnOverflow()
		cs.mode = cs.mode.withReachedOverflow(true)
	}

	if interruptRequest {
		if !cs.mode.irqPulseN() {
			// Pulse mode: a momentary falling edge.
			cs.mode = cs.mode.withInterruptRequestN(false)
			t.updateIRQ(i)
			cs.mode = cs.mode.withInterruptRequestN(true)
		} else {
			// Toggle mode: flip the line; a falling edge propagates.
			cs.mode = cs.mode.withInterruptRequestN(!cs.mode.interruptRequestN())
			t.updateIRQ(i)
		}
	}

	if cs.mode.resetAtTarget() {
		if cs.target > 0 {
			cs.counter = newVal % uint32(cs.target)
		} else {
			cs.counter = 0
		}
	} else {
		// Modulo by 0xFFFF, not 0x10000 — see design note §9: 0xFFFF never
		// rests in the counter, it wraps to 0 in the same arithmetic step.
		cs.counter = newVal % 0xFFFF
	}
}

// updateIRQ asserts the interrupt line for timer i unless it is already
// high or a one-shot IRQ has already fired since the last mode write.
func (t *Timers) updateIRQ(i uint32) {
	cs := &t.states[i]
	if cs.mode.interruptRequestN() || (!cs.mode.irqRepeat() && cs.irqDone) {
		return
	}
	t.log.Debugf("raising timer %d IRQ", i)
	cs.irqDone = true
	if t.irqCtrl != nil {
		t.irqCtrl.RaiseIRQ(IRQTimer0 + IRQLine(i))
	}
}

// Execute advances all three timers by the given sysclk-tick batch,
// respecting each timer's clock source, and recomputes the downcount.
// Timers 0 and 1's external clocks (GPU dot clock, hblank) are driven by
// the GPU calling AddTicks directly; Execute never advances them itself
// while external_counting_enabled is set.
func (t *Timers) Execute(sysclkTicks uint32) {
	if !t.states[0].externalCountingEnabled && t.states[0].countingEnabled {
		t.AddTicks(0, sysclkTicks)
	}
	if !t.states[1].externalCountingEnabled && t.states[1].countingEnabled {
		t.AddTicks(1, sysclkTicks)
	}

	if t.states[2].externalCountingEnabled {
		total := sysclkTicks + t.sysclkDiv8Carry
		t.AddTicks(2, total/8)
		t.sysclkDiv8Carry = total % 8
	} else if t.states[2].countingEnabled {
		t.AddTicks(2, sysclkTicks)
	}

	t.updateDowncount()
}

// updateDowncount recomputes the minimum ticks until the next guaranteed
// timer event and publishes it via System.SetDowncount.
func (t *Timers) updateDowncount() {
	minTicks := uint32(math.MaxUint32)

	for i := 0; i < NumTimers; i++ {
		cs := &t.states[i]
		if !cs.countingEnabled || (i < 2 && cs.externalCountingEnabled) {
			continue
		}

		candidate := minTicks
		if cs.mode.irqAtTarget() && uint32(cs.counter) < uint32(cs.target) {
			candidate = uint32(cs.target) - cs.counter
		}
		if cs.mode.irqOnOverflow() && uint32(cs.counter) < uint32(cs.target) {
			overflowCandidate := 0xFFFF - cs.counter
			if overflowCandidate < candidate {
				candidate = overflowCandidate
			}
		}

		if cs.externalCountingEnabled { // sysclk/8 for timer 2
			candidate /= 8
			if candidate < 1 {
				candidate = 1
			}
		}

		if candidate < minTicks {
			minTicks = candidate
		}
	}

	if t.system != nil {
		t.system.SetDowncount(minTicks)
	}
}

// ReadRegister implements the memory-mapped register interface of
// spec.md §4.1/§6.
func (t *Timers) ReadRegister(offset uint32) uint32 {
	timerIndex := (offset >> 4) & 3
	port := offset & 0xF
	cs := &t.states[timerIndex]

	switch port {
	case 0x0:
		t.system.Synchronize()
		return cs.counter

	case 0x4:
		t.system.Synchronize()
		bits := uint32(cs.mode)
		cs.mode = cs.mode.withReachedTarget(false).withReachedOverflow(false)
		return bits

	case 0x8:
		return uint32(cs.target)

	default:
		t.log.Errorf("read unknown register in timer %d (offset 0x%02X)", timerIndex, offset)
		return 0xFFFFFFFF
	}
}

// WriteRegister implements the memory-mapped register interface of
// spec.md §4.1/§6.
func (t *Timers) WriteRegister(offset uint32, value uint32) {
	timerIndex := (offset >> 4) & 3
	port := offset & 0xF
	cs := &t.states[timerIndex]

	switch port {
	case 0x0:
		t.system.Synchronize()
		cs.counter = value & 0xFFFF

	case 0x4:
		t.system.Synchronize()
		cs.mode = mode(value & modeWriteMask)
		cs.useExternalClock = clockSourceUsesExternal(cs.mode.clockSource(), timerIndex)
		cs.counter = 0
		cs.irqDone = false
		if cs.mode.irqPulseN() {
			cs.mode = cs.mode.withInterruptRequestN(true)
		}
		t.updateCountingEnabled(cs)
		t.updateIRQ(timerIndex)

	case 0x8:
		t.system.Synchronize()
		cs.target = uint16(value & 0xFFFF)

	default:
		t.log.Errorf("write unknown register in timer %d (offset 0x%02X, value 0x%X)", timerIndex, offset, value)
	}
}

// clockSourceUsesExternal decodes the clock_source field against the
// timer's index: timer 2 checks bit 1, timers 0/1 check bit 0.
func clockSourceUsesExternal(clockSource uint16, timerIndex uint32) bool {
	if timerIndex == 2 {
		return clockSource&2 != 0
	}
	return clockSource&1 != 0
}
