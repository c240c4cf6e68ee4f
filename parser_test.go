package routeros

import "testing"

func sentenceBytes(words ...string) []byte {
	return encodeSentence(words...)
}

func TestParserWholeSentenceInOneFeed(t *testing.T) {
	p := newParser()
	wire := sentenceBytes("!re", "=name=ether1", "=rx-byte=100")

	sentences, err := p.feed(wire)
	if err != nil {
		t.Fatalf("feed: unexpected error: %v", err)
	}
	if len(sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(sentences))
	}
	want := []string{"!re", "=name=ether1", "=rx-byte=100"}
	if !stringSlicesEqual(sentences[0], want) {
		t.Errorf("sentence = %v, want %v", sentences[0], want)
	}
}

// TestParserByteAtATime proves fragmentation tolerance: feeding the exact
// same bytes one at a time must reassemble to the identical sentence as
// feeding them all at once.
func TestParserByteAtATime(t *testing.T) {
	p := newParser()
	wire := sentenceBytes("!done", "=ret=abcdef0123456789")

	var sentences [][]string
	for i := 0; i < len(wire); i++ {
		got, err := p.feed(wire[i : i+1])
		if err != nil {
			t.Fatalf("feed byte %d: unexpected error: %v", i, err)
		}
		sentences = append(sentences, got...)
	}

	if len(sentences) != 1 {
		t.Fatalf("got %d sentences, want 1", len(sentences))
	}
	want := []string{"!done", "=ret=abcdef0123456789"}
	if !stringSlicesEqual(sentences[0], want) {
		t.Errorf("sentence = %v, want %v", sentences[0], want)
	}
}

// TestParserArbitraryChunking proves the reassembly is independent of where
// the transport happens to split the stream, by chunking the same wire
// bytes several different ways and checking all of them agree.
func TestParserArbitraryChunking(t *testing.T) {
	wire := append(sentenceBytes("!re", "=name=ether1", "=rx-byte=1"), sentenceBytes("!done")...)

	chunkings := [][]int{
		{len(wire)},
		splitEvery(wire, 1),
		splitEvery(wire, 3),
		splitEvery(wire, 7),
	}

	var reference [][]string
	for i, sizes := range chunkings {
		p := newParser()
		offset := 0
		var sentences [][]string
		for _, size := range sizes {
			got, err := p.feed(wire[offset : offset+size])
			if err != nil {
				t.Fatalf("chunking %d: feed: unexpected error: %v", i, err)
			}
			sentences = append(sentences, got...)
			offset += size
		}
		if i == 0 {
			reference = sentences
			continue
		}
		if len(sentences) != len(reference) {
			t.Fatalf("chunking %d produced %d sentences, want %d", i, len(sentences), len(reference))
		}
		for j := range sentences {
			if !stringSlicesEqual(sentences[j], reference[j]) {
				t.Errorf("chunking %d sentence %d = %v, want %v", i, j, sentences[j], reference[j])
			}
		}
	}
}

func TestParserInvalidLengthPropagates(t *testing.T) {
	p := newParser()
	_, err := p.feed([]byte{0xF8, 0x00})
	if err != errInvalidLength {
		t.Errorf("feed(invalid prefix) = %v, want errInvalidLength", err)
	}
}

func splitEvery(b []byte, n int) []int {
	var sizes []int
	for len(b) > 0 {
		size := n
		if size > len(b) {
			size = len(b)
		}
		sizes = append(sizes, size)
		b = b[size:]
	}
	return sizes
}

func stringSlicesEqual(a, b []string) bool {
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
