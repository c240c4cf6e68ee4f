package routeros

import "testing"

func TestEmitterDeliversInRegistrationOrder(t *testing.T) {
	e := NewEmitter()
	var order []int

	e.On("tick", func(...any) { order = append(order, 1) })
	e.On("tick", func(...any) { order = append(order, 2) })
	e.On("tick", func(...any) { order = append(order, 3) })

	e.Emit("tick")

	want := []int{1, 2, 3}
	if !intSlicesEqual(order, want) {
		t.Errorf("delivery order = %v, want %v", order, want)
	}
}

func TestEmitterOnDedupesIdenticalCallback(t *testing.T) {
	e := NewEmitter()
	calls := 0
	fn := func(...any) { calls++ }

	e.On("tick", fn)
	e.On("tick", fn)
	e.Emit("tick")

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (duplicate registration should be a no-op)", calls)
	}
}

func TestEmitterOffRemovesListener(t *testing.T) {
	e := NewEmitter()
	calls := 0
	fn := func(...any) { calls++ }

	e.On("tick", fn)
	e.Off("tick", fn)
	e.Emit("tick")

	if calls != 0 {
		t.Errorf("calls = %d, want 0 after Off", calls)
	}
}

func TestEmitterOnceFiresExactlyOnce(t *testing.T) {
	e := NewEmitter()
	calls := 0
	e.Once("connect", func(...any) { calls++ })

	e.Emit("connect")
	e.Emit("connect")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestEmitterOnceSiblingsDoNotInterfere guards against a real Go pitfall:
// two Once registrations built from the same closure literal can share a
// reflected function pointer, so a naive implementation keying
// self-removal off that pointer could remove the wrong sibling.
func TestEmitterOnceSiblingsDoNotInterfere(t *testing.T) {
	e := NewEmitter()
	var aCalls, bCalls int

	register := func(counter *int) {
		e.Once("connect", func(...any) { *counter++ })
	}
	register(&aCalls)
	register(&bCalls)

	e.Emit("connect")

	if aCalls != 1 || bCalls != 1 {
		t.Fatalf("aCalls=%d bCalls=%d, want both 1 after first Emit", aCalls, bCalls)
	}

	e.Emit("connect")

	if aCalls != 1 || bCalls != 1 {
		t.Errorf("aCalls=%d bCalls=%d, want both still 1 after second Emit", aCalls, bCalls)
	}
}

func TestEmitterEmitWithNoListenersIsNoop(t *testing.T) {
	e := NewEmitter()
	e.Emit("nothing-registered") // must not panic
}

func TestEmitterOnceRemovesItselfBeforeInvoking(t *testing.T) {
	e := NewEmitter()
	var secondCalls int

	e.Once("tick", func(...any) {
		// Re-entrant emit from inside the listener: the wrapper must have
		// already removed itself, or this would recurse forever.
		e.Emit("tick")
	})
	e.On("tick", func(...any) { secondCalls++ })

	e.Emit("tick")

	// The outer Emit's listener snapshot already included the plain
	// listener before the Once wrapper removed itself, so the plain
	// listener runs once via the re-entrant Emit and once more when the
	// outer loop reaches it, both are this single top-level call's doing.
	if secondCalls != 2 {
		t.Errorf("secondCalls = %d, want 2", secondCalls)
	}
}

func intSlicesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
