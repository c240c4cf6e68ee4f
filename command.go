package routeros

import (
	"errors"
	"io"
	"net"
	"sort"
	"strings"
)

// readChunkSize is the buffer size used for each Read call while a command
// is in flight. RouterOS replies are small; a single interface/print row is
// a handful of words, so there is no benefit to a larger buffer.
const readChunkSize = 4096

// RunCommand sends path plus its params as a single request sentence and
// blocks until the router sends a terminal sentence (!done, !trap, !fatal)
// or the transport ends. Keys in params that start with "?" are forwarded
// as query words ("?key" or "?key=value"); every other key is forwarded as
// an attribute word ("=key=value"). The engine never reorders or rewrites a
// key itself; sorting is applied only to make the wire order of a given
// params map deterministic across calls.
func (c *Client) RunCommand(path string, params map[string]string) (Reply, error) {
	return c.RunCommandWords(requestWords(path, params))
}

// RunCommandWords is the raw counterpart to RunCommand: words is sent as a
// complete request sentence verbatim, in order, with no sorting or
// rewriting. It exists for requests RunCommand's map-of-params shape cannot
// express, chiefly repeated query words (e.g. the postfix "?#|" OR operator
// ANDed/ORed across several "?key=value" conditions, which requires the
// same query key to appear more than once in one request).
func (c *Client) RunCommandWords(words []string) (Reply, error) {
	if c.conn == nil {
		return Reply{}, &NotConnectedError{}
	}

	if _, err := c.conn.Write(encodeSentence(words...)); err != nil {
		return Reply{}, c.classifyReadErr(err)
	}

	p := newParser()
	var collected [][]string
	buf := make([]byte, readChunkSize)

	for {
		n, readErr := c.conn.Read(buf)
		if n > 0 {
			sentences, err := p.feed(buf[:n])
			if err != nil {
				return Reply{}, &TransportError{Err: err}
			}
			for _, sentence := range sentences {
				if len(sentence) == 0 {
					continue
				}
				switch sentence[0] {
				case "!trap":
					return Reply{}, trapErrorFromSentence(sentence)
				case "!fatal":
					return Reply{}, fatalErrorFromSentence(sentence)
				default:
					collected = append(collected, sentence)
					if sentence[0] == "!done" {
						return Reply{
							Records: projectRecords(collected),
							Done:    attributesOf(sentence[1:]),
						}, nil
					}
				}
			}
		}
		if readErr != nil {
			return Reply{}, c.classifyReadErr(readErr)
		}
	}
}

// requestWords renders path and params into the ordered word list a
// request sentence is built from.
func requestWords(path string, params map[string]string) []string {
	words := make([]string, 0, len(params)+1)
	words = append(words, path)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := params[k]
		if strings.HasPrefix(k, "?") {
			if v == "" {
				words = append(words, k)
			} else {
				words = append(words, k+"="+v)
			}
			continue
		}
		words = append(words, "="+k+"="+v)
	}
	return words
}

func trapErrorFromSentence(sentence []string) *TrapError {
	attrs := attributesOf(sentence[1:])
	msg := attrs["message"]
	if msg == "" {
		msg = "Trap error"
	}
	return &TrapError{Message: msg, Category: attrs["category"]}
}

func fatalErrorFromSentence(sentence []string) *FatalError {
	return &FatalError{Message: "Fatal error: " + strings.Join(sentence[1:], " ")}
}

// classifyReadErr turns a raw transport error into one of the typed kinds
// §7 defines, and emits the matching lifecycle event on the client's
// Emitter before returning it.
func (c *Client) classifyReadErr(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		c.emitter.Emit("end")
		return &ConnectionEndedError{}
	case errors.Is(err, net.ErrClosed):
		c.emitter.Emit("close")
		return &ConnectionClosedError{}
	default:
		c.emitter.Emit("error", err)
		return &TransportError{Err: err}
	}
}
