package routeros

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRunCommandSimplePrint(t *testing.T) {
	client, server := newPipeClient()
	defer server.Close()

	fakeRouter(t, server, func(request []string) bool {
		server.Write(encodeSentence("!re", "=name=ether1"))
		server.Write(encodeSentence("!re", "=name=ether2"))
		server.Write(encodeSentence("!done"))
		return false
	})

	reply, err := client.RunCommand("/interface/print", nil)
	if err != nil {
		t.Fatalf("RunCommand: unexpected error: %v", err)
	}

	want := []Record{{"name": "ether1"}, {"name": "ether2"}}
	if diff := cmp.Diff(want, reply.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCommandTrap(t *testing.T) {
	client, server := newPipeClient()
	defer server.Close()

	fakeRouter(t, server, func(request []string) bool {
		server.Write(encodeSentence("!trap", "=message=invalid user name or password"))
		server.Write(encodeSentence("!done"))
		return false
	})

	_, err := client.RunCommand("/login", map[string]string{"name": "admin", "password": "wrong"})
	if err == nil {
		t.Fatal("RunCommand: expected error, got nil")
	}

	var trapErr *TrapError
	if !errors.As(err, &trapErr) {
		t.Fatalf("error = %v (%T), want *TrapError", err, err)
	}
	if trapErr.Message != "invalid user name or password" {
		t.Errorf("trap message = %q, want %q", trapErr.Message, "invalid user name or password")
	}
}

// TestRunCommandFragmentedRead mirrors TestRunCommandSimplePrint but forces
// the router to write its reply one byte at a time, proving RunCommand's
// use of the resumable parser tolerates arbitrary fragmentation.
func TestRunCommandFragmentedRead(t *testing.T) {
	client, server := newPipeClient()
	defer server.Close()

	wire := append(encodeSentence("!re", "=name=ether1"), encodeSentence("!done")...)

	go func() {
		// Drain the request sentence first.
		buf := make([]byte, 4096)
		server.Read(buf)
		for i := 0; i < len(wire); i++ {
			server.Write(wire[i : i+1])
		}
	}()

	reply, err := client.RunCommand("/interface/print", nil)
	if err != nil {
		t.Fatalf("RunCommand: unexpected error: %v", err)
	}

	want := []Record{{"name": "ether1"}}
	if diff := cmp.Diff(want, reply.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

// TestRunCommandTransportCloseMidCommand sends one row, then closes the
// transport instead of terminating the reply. net.Pipe's closure surfaces
// as io.EOF to the blocked Read, so either ConnectionEndedError or
// ConnectionClosedError is an acceptable terminal outcome; the test
// asserts on the typed kind, not the exact variant.
func TestRunCommandTransportCloseMidCommand(t *testing.T) {
	client, server := newPipeClient()

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		server.Write(encodeSentence("!re", "=name=ether1"))
		server.Close()
	}()

	_, err := client.RunCommand("/interface/print", nil)
	if err == nil {
		t.Fatal("RunCommand: expected error, got nil")
	}

	var ended *ConnectionEndedError
	var closed *ConnectionClosedError
	if !errors.As(err, &ended) && !errors.As(err, &closed) {
		t.Errorf("error = %v (%T), want *ConnectionEndedError or *ConnectionClosedError", err, err)
	}
}

func TestRunCommandWithoutConnect(t *testing.T) {
	client := NewClient(Options{Host: "unused"})

	_, err := client.RunCommand("/interface/print", nil)
	var notConnected *NotConnectedError
	if !errors.As(err, &notConnected) {
		t.Errorf("error = %v (%T), want *NotConnectedError", err, err)
	}
}

func TestClientOnOffChaining(t *testing.T) {
	client := NewClient(Options{Host: "unused"})
	calls := 0
	fn := func(...any) { calls++ }

	if got := client.On("connect", fn); got != client {
		t.Errorf("On did not return the same *Client for chaining")
	}
	client.emitter.Emit("connect")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	client.Off("connect", fn)
	client.emitter.Emit("connect")
	if calls != 1 {
		t.Errorf("calls = %d after Off, want still 1", calls)
	}
}

func TestOptionsDefaults(t *testing.T) {
	plain := Options{Host: "router"}
	if got := plain.port(); got != 8728 {
		t.Errorf("plain port = %d, want 8728", got)
	}

	tlsOpts := Options{Host: "router", SSL: true}
	if got := tlsOpts.port(); got != 8729 {
		t.Errorf("ssl port = %d, want 8729", got)
	}

	if got := plain.timeout(); got != defaultTimeout {
		t.Errorf("timeout = %v, want %v", got, defaultTimeout)
	}
}
