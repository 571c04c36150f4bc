package core

// memctrlRegCount is the number of 32-bit registers in the MEMCTRL file
// (spec.md §6): EXP1_BASE, EXP2_BASE, EXP1_DELAY/SIZE, EXP3_DELAY/SIZE,
// BIOS_DELAY/SIZE, SPU_DELAY/SIZE, CDROM_DELAY/SIZE, EXP2_DELAY/SIZE,
// COMMON_DELAY.
const memctrlRegCount = 9

const (
	regEXP1Base = iota
	regEXP2Base
	regEXP1DelaySize
	regEXP3DelaySize
	regBIOSDelaySize
	regSPUDelaySize
	regCDROMDelaySize
	regEXP2DelaySize
	regCommonDelay
)

// Initial MEMCTRL register values, spec.md §6.
var memctrlInitialValues = [memctrlRegCount]uint32{
	regEXP1Base:       0x1F000000,
	regEXP2Base:       0x1F802000,
	regEXP1DelaySize:  0x0013243F,
	regEXP3DelaySize:  0x00003022,
	regBIOSDelaySize:  0x0013243F,
	regSPUDelaySize:   0x200931E1,
	regCDROMDelaySize: 0x00020843,
	regEXP2DelaySize:  0x00070777,
	regCommonDelay:    0x00031125,
}

// ramSizeRegInitial is the opaque MEMCTRL2 register's reset value.
const ramSizeRegInitial = 0x00000B88

// MEMDELAY field layout, spec.md §6.
const (
	memDelayAccessTimeMask = 0xF
	memDelayUseCom0Bit     = 8
	memDelayUseCom2Bit     = 9
	memDelayUseCom3Bit     = 10
	memDelayDataBus16Bit   = 12

	// memDelayWriteMask preserves reserved bits across writes.
	memDelayWriteMask = 0x00001FFF

	// comDelayWriteMask preserves reserved bits across writes.
	comDelayWriteMask = 0x0000FFFF
)

type memDelay uint32

func (d memDelay) accessTime() uint32 { return uint32(d) & memDelayAccessTimeMask }
func (d memDelay) useCom0() bool      { return d&(1<<memDelayUseCom0Bit) != 0 }
func (d memDelay) useCom2() bool      { return d&(1<<memDelayUseCom2Bit) != 0 }
func (d memDelay) useCom3() bool      { return d&(1<<memDelayUseCom3Bit) != 0 }
func (d memDelay) dataBus16Bit() bool { return d&(1<<memDelayDataBus16Bit) != 0 }

// COMDELAY field layout, spec.md §6.
type comDelay uint32

func (d comDelay) com0() uint32 { return uint32(d>>0) & 0xF }
func (d comDelay) com1() uint32 { return uint32(d>>4) & 0xF }
func (d comDelay) com2() uint32 { return uint32(d>>8) & 0xF }
func (d comDelay) com3() uint32 { return uint32(d>>12) & 0xF }

// accessTimeTriple is the (byte, halfword, word) cycle-cost triple for one
// memory-mapped region.
type accessTimeTriple struct {
	byte     uint32
	halfword uint32
	word     uint32
}

// memctrl owns the MEMCTRL register file and the derived, cached access
// time triples for BIOS, CDROM, SPU, EXP1, and EXP2, recomputed whenever a
// register write actually changes a value.
type memctrl struct {
	regs [memctrlRegCount]uint32

	biosAccess  accessTimeTriple
	cdromAccess accessTimeTriple
	spuAccess   accessTimeTriple
	exp1Access  accessTimeTriple
	exp2Access  accessTimeTriple
}

func newMemctrl() *memctrl {
	m := &memctrl{}
	m.reset()
	return m
}

func (m *memctrl) reset() {
	m.regs = memctrlInitialValues
	m.recalculate()
}

// read returns the raw 32-bit register value at a 4-byte-aligned index;
// callers apply the unaligned-word fixup themselves via the bus.
func (m *memctrl) read(index uint32) uint32 {
	return m.regs[index]
}

// write applies write_mask (COMDELAY's for the COMMON_DELAY register,
// MEMDELAY's otherwise), preserving reserved bits, and recalculates the
// cached access-time triples only if the value actually changed.
func (m *memctrl) write(index uint32, value uint32) {
	writeMask := uint32(memDelayWriteMask)
	if index == regCommonDelay {
		writeMask = comDelayWriteMask
	}

	newValue := (m.regs[index] &^ writeMask) | (value & writeMask)
	if newValue == m.regs[index] {
		return
	}
	m.regs[index] = newValue
	m.recalculate()
}

// recalculate derives the (byte, half, word) cycle-cost triples for the
// regions that own a MEMDELAY register, per calculateMemoryTiming.
func (m *memctrl) recalculate() {
	common := comDelay(m.regs[regCommonDelay])
	m.biosAccess = calculateMemoryTiming(memDelay(m.regs[regBIOSDelaySize]), common)
	m.cdromAccess = calculateMemoryTiming(memDelay(m.regs[regCDROMDelaySize]), common)
	m.spuAccess = calculateMemoryTiming(memDelay(m.regs[regSPUDelaySize]), common)
	m.exp1Access = calculateMemoryTiming(memDelay(m.regs[regEXP1DelaySize]), common)
	m.exp2Access = calculateMemoryTiming(memDelay(m.regs[regEXP2DelaySize]), common)
}

// calculateMemoryTiming derives the (byte, half, word) cycle-cost triple
// from a MEMDELAY and the shared COMDELAY register, per the nocash-derived
// formula in spec.md §4.2.
func calculateMemoryTiming(d memDelay, c comDelay) accessTimeTriple {
	var first, seq, min int32

	if d.useCom0() {
		first += int32(c.com0()) - 1
		seq += int32(c.com0()) - 1
	}
	if d.useCom2() {
		first += int32(c.com2())
		seq += int32(c.com2())
	}
	if d.useCom3() {
		min = int32(c.com3())
	}
	if first < 6 {
		first++
	}

	first += int32(d.accessTime()) + 2
	seq += int32(d.accessTime()) + 2

	if first < min+6 {
		first = min + 6
	}
	if seq < min+2 {
		seq = min + 2
	}

	byteTime := uint32(first)
	var halfTime, wordTime uint32
	if d.dataBus16Bit() {
		halfTime = uint32(first)
		wordTime = uint32(first + seq)
	} else {
		halfTime = uint32(first + seq)
		wordTime = uint32(first + 3*seq)
	}

	return accessTimeTriple{byte: byteTime, halfword: halfTime, word: wordTime}
}
