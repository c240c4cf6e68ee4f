package routeros

import "bytes"

// encodeWord length-prefixes a single protocol word.
func encodeWord(word string) []byte {
	prefix := encodeLength(len(word))
	return append(prefix, word...)
}

// encodeSentence frames a full request: the command path, its attribute and
// query words, and the zero-length terminator word.
func encodeSentence(words ...string) []byte {
	var buf bytes.Buffer
	for _, w := range words {
		buf.Write(encodeWord(w))
	}
	buf.WriteByte(0)
	return buf.Bytes()
}
