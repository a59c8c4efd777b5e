package statehash

import "testing"

func TestSetDebugFlags(t *testing.T) {
	defer SetDebugFlags("")

	SetDebugFlags("snapshot,Walk")
	if !IsDebugEnabled("snapshot") || !IsDebugEnabled("walk") {
		t.Error("plain flags should be enabled")
	}
	if IsDebugEnabled("engine") {
		t.Error("unset flags should be disabled")
	}

	SetDebugFlags("snapshot:off,walk:on,engine:1")
	if IsDebugEnabled("snapshot") {
		t.Error("flag:off should disable the flag")
	}
	if !IsDebugEnabled("walk") || !IsDebugEnabled("engine") {
		t.Error("flag:on and flag:1 should enable the flag")
	}

	SetDebugFlags("")
	if IsDebugEnabled("walk") {
		t.Error("resetting should clear every flag")
	}
}

func TestVerboseLevel(t *testing.T) {
	defer SetVerboseLevel(0)

	SetVerboseLevel(2)
	if GetVerboseLevel() != 2 {
		t.Errorf("expected level 2, got %d", GetVerboseLevel())
	}
}
