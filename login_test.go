package routeros

import (
	"errors"
	"net"
	"testing"
)

// fakeRouter reads sentences off conn and hands them to handle, which
// writes back whatever reply sentence(s) it wants. It stops when conn is
// closed or handle returns false.
func fakeRouter(t *testing.T, conn net.Conn, handle func(request []string) (more bool)) {
	t.Helper()
	go func() {
		p := newParser()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				sentences, perr := p.feed(buf[:n])
				if perr != nil {
					return
				}
				for _, s := range sentences {
					if !handle(s) {
						return
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

func newPipeClient() (*Client, net.Conn) {
	clientSide, serverSide := net.Pipe()
	c := &Client{
		opts:    Options{Host: "test"},
		conn:    clientSide,
		emitter: NewEmitter(),
	}
	return c, serverSide
}

func TestLoginModernFlowNoChallenge(t *testing.T) {
	client, server := newPipeClient()
	defer server.Close()

	fakeRouter(t, server, func(request []string) bool {
		if request[0] != "/login" {
			t.Errorf("unexpected request: %v", request)
			return false
		}
		server.Write(encodeSentence("!done"))
		return true
	})

	if err := client.Login("admin", "secret"); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}
}

func TestLoginLegacyChallengeFlow(t *testing.T) {
	client, server := newPipeClient()
	defer server.Close()

	round := 0
	fakeRouter(t, server, func(request []string) bool {
		round++
		switch round {
		case 1:
			server.Write(encodeSentence("!done", "=ret=5468697349734368616c6c656e6765"))
		case 2:
			found := false
			for _, w := range request {
				if len(w) > len("=response=") && w[:len("=response=")] == "=response=" {
					found = true
				}
			}
			if !found {
				t.Errorf("second /login request missing =response=: %v", request)
			}
			server.Write(encodeSentence("!done"))
		}
		return true
	})

	if err := client.Login("admin", "secret"); err != nil {
		t.Fatalf("Login: unexpected error: %v", err)
	}
	if round != 2 {
		t.Errorf("router saw %d requests, want 2", round)
	}
}

func TestLoginFailureWrapsTrap(t *testing.T) {
	client, server := newPipeClient()
	defer server.Close()

	fakeRouter(t, server, func(request []string) bool {
		server.Write(encodeSentence("!trap", "=message=invalid user name or password"))
		return true
	})

	err := client.Login("admin", "wrong")
	if err == nil {
		t.Fatal("Login: expected error, got nil")
	}
	var loginErr *LoginFailedError
	if !errors.As(err, &loginErr) {
		t.Errorf("Login error = %v (%T), want *LoginFailedError", err, err)
	}
	var trapErr *TrapError
	if !errors.As(err, &trapErr) {
		t.Errorf("Login error does not unwrap to *TrapError: %v", err)
	}
}

func TestChallengeResponseFormat(t *testing.T) {
	response, err := challengeResponse("secret", "00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("challengeResponse: unexpected error: %v", err)
	}
	if len(response) != 34 || response[:2] != "00" {
		t.Errorf("challengeResponse = %q, want 34 chars starting with \"00\"", response)
	}
}

func TestChallengeResponseRejectsInvalidHex(t *testing.T) {
	if _, err := challengeResponse("secret", "not-hex"); err == nil {
		t.Error("challengeResponse: expected error for non-hex challenge, got nil")
	}
}

