package core

import "testing"

func TestBus_SerializeRoundTrip(t *testing.T) {
	b := newTestBus(t)

	b.Write(Word, 0x1000, 0xCAFEBABE)
	b.Write(Byte, scratchpadBase+4, 0x42)
	b.mc.write(regBIOSDelaySize, 0x00000000)
	b.Write(Word, memctrl2Base, 0x12345678)
	b.timers.WriteRegister(timerBase(1)+targetOffset, 777)
	b.timers.AddTicks(1, 5)

	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	fresh := newTestBus(t)
	if err := fresh.Deserialize(data); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if v, _ := fresh.Read(Word, 0x1000); v != 0xCAFEBABE {
		t.Errorf("expected RAM word 0xCAFEBABE after round trip, got 0x%08X", v)
	}
	if v, _ := fresh.Read(Byte, scratchpadBase+4); v != 0x42 {
		t.Errorf("expected scratchpad byte 0x42 after round trip, got 0x%X", v)
	}
	if fresh.mc.read(regBIOSDelaySize) != b.mc.read(regBIOSDelaySize) {
		t.Errorf("expected MEMCTRL BIOS delay register to round trip")
	}
	if fresh.mc.biosAccess != b.mc.biosAccess {
		t.Errorf("expected cached access-time triple to be recomputed consistently after restore")
	}
	if v, _ := fresh.Read(Word, memctrl2Base); v != 0x12345678 {
		t.Errorf("expected RAM size register 0x12345678 after round trip, got 0x%X", v)
	}
	if fresh.timers.states[1].target != 777 {
		t.Errorf("expected timer 1 target 777 after round trip, got %d", fresh.timers.states[1].target)
	}
	if fresh.timers.states[1].counter != b.timers.states[1].counter {
		t.Errorf("expected timer 1 counter to round trip, want %d got %d", b.timers.states[1].counter, fresh.timers.states[1].counter)
	}
}

func TestBus_VerifyStateRejectsTruncatedData(t *testing.T) {
	b := newTestBus(t)

	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	if err := b.VerifyState(data[:stateHeaderSize]); err == nil {
		t.Fatal("expected an error for truncated save state data")
	} else if _, ok := err.(*StateError); !ok {
		t.Errorf("expected *StateError, got %T", err)
	}
}

func TestBus_VerifyStateRejectsWrongBIOS(t *testing.T) {
	b := newTestBus(t)

	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	otherBIOS := make([]byte, BIOSSize)
	otherBIOS[0] = 0xFF
	timers := NewTimers()
	timers.Initialize(NullSystem{}, NullInterruptController{})
	other, err := NewBus(otherBIOS, NullPad{}, NullDMA{}, NullGPU{}, NullMDEC{}, NullCDROM{}, NullSPU{}, NullInterruptController{}, timers)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}

	if err := other.VerifyState(data); err == nil {
		t.Fatal("expected an error when restoring a save state captured against a different BIOS image")
	}
}

func TestBus_VerifyStateRejectsCorruption(t *testing.T) {
	b := newTestBus(t)

	data, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	data[stateHeaderSize] ^= 0xFF // flip a byte inside the checksummed body

	if err := b.VerifyState(data); err == nil {
		t.Fatal("expected an error for corrupted save state data")
	}
}
