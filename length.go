package routeros

import (
	"encoding/binary"
	"errors"
)

// errNeedMoreData signals that a buffer does not yet hold enough bytes to
// decode a length prefix or a word body. It is not a protocol error: the
// caller should simply wait for more bytes from the transport and retry.
var errNeedMoreData = errors.New("routeros: need more data")

// errInvalidLength is returned when a length prefix's leading byte does not
// match any of the five encoding widths the protocol defines.
var errInvalidLength = errors.New("routeros: invalid length prefix")

// encodeLength encodes a non-negative integer as a RouterOS API length
// prefix: 1 to 5 bytes depending on magnitude. See the wire format table in
// SPEC_FULL.md §4.1.
func encodeLength(length int) []byte {
	switch {
	case length < 0x80:
		return []byte{byte(length)}
	case length < 0x4000:
		return []byte{
			byte(length>>8) | 0x80,
			byte(length),
		}
	case length < 0x200000:
		return []byte{
			byte(length>>16) | 0xC0,
			byte(length >> 8),
			byte(length),
		}
	case length < 0x10000000:
		return []byte{
			byte(length>>24) | 0xE0,
			byte(length >> 16),
			byte(length >> 8),
			byte(length),
		}
	default:
		buf := make([]byte, 5)
		buf[0] = 0xF0
		binary.BigEndian.PutUint32(buf[1:], uint32(length))
		return buf
	}
}

// decodeLength reads a length prefix from the head of buf. It returns the
// decoded length and the number of bytes the prefix occupied (its "width").
// If buf does not yet hold a full prefix it returns errNeedMoreData so the
// caller can retry once more bytes have arrived.
func decodeLength(buf []byte) (length int, width int, err error) {
	if len(buf) == 0 {
		return 0, 0, errNeedMoreData
	}

	b := buf[0]
	switch {
	case b == 0:
		return 0, 1, nil
	case b&0x80 == 0:
		return int(b), 1, nil
	case b&0xC0 == 0x80:
		width = 2
	case b&0xE0 == 0xC0:
		width = 3
	case b&0xF0 == 0xE0:
		width = 4
	case b == 0xF0:
		width = 5
	default:
		return 0, 0, errInvalidLength
	}

	if len(buf) < width {
		return 0, 0, errNeedMoreData
	}

	switch width {
	case 2:
		length = int(b&^0xC0)<<8 | int(buf[1])
	case 3:
		length = int(b&^0xE0)<<16 | int(buf[1])<<8 | int(buf[2])
	case 4:
		length = int(b&^0xF0)<<24 | int(buf[1])<<16 | int(buf[2])<<8 | int(buf[3])
	case 5:
		length = int(binary.BigEndian.Uint32(buf[1:5]))
	}
	return length, width, nil
}
