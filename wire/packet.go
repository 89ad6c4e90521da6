// Package wire implements the on-the-wire packet format: header layout,
// encode/decode and checksum validation. It mirrors the byte-offset,
// big-endian accessor idiom used throughout yustack's header package, but
// for the single flat packet shape this protocol uses instead of a stack of
// layered protocol headers.
package wire

import (
	"encoding/binary"
)

// Field byte offsets within the fixed 12-byte header.
const (
	offCksum = 0
	offLen   = 2
	offAckno = 4
	offSeqno = 8
)

const (
	// AckHeaderSize is the size of the fixed header without the optional
	// seqno field (an ACK packet).
	AckHeaderSize = 8

	// DataHeaderSize is the size of the fixed header including seqno,
	// used by both EOF and data packets.
	DataHeaderSize = 12

	// MaxPayload is the largest payload a data packet may carry.
	MaxPayload = 500

	// MaxPacketSize is the largest packet the wire format allows.
	MaxPacketSize = DataHeaderSize + MaxPayload
)

// Packet is a parsed, host-order view of a decoded wire packet.
type Packet struct {
	Ackno   uint32
	Seqno   uint32
	Payload []byte

	// IsAck is true for a len=8 packet: no seqno, no payload.
	IsAck bool

	// IsEOF is true for a len=12 packet: a seqno but no payload.
	IsEOF bool
}

// EncodeAck builds a len=8 ACK packet carrying the cumulative ackno.
func EncodeAck(ackno uint32, sum func([]byte) uint16) []byte {
	b := make([]byte, AckHeaderSize)
	binary.BigEndian.PutUint16(b[offLen:], AckHeaderSize)
	binary.BigEndian.PutUint32(b[offAckno:], ackno)
	binary.BigEndian.PutUint16(b[offCksum:], sum(b))
	return b
}

// EncodeData builds a data (or, if payload is empty, EOF) packet for seqno.
func EncodeData(seqno uint32, payload []byte, sum func([]byte) uint16) []byte {
	n := DataHeaderSize + len(payload)
	b := make([]byte, n)
	binary.BigEndian.PutUint16(b[offLen:], uint16(n))
	binary.BigEndian.PutUint32(b[offSeqno:], seqno)
	copy(b[DataHeaderSize:], payload)
	binary.BigEndian.PutUint16(b[offCksum:], sum(b))
	return b
}

// Decode parses the first n bytes of b into a Packet. It returns ok=false
// for anything the wire format considers invalid: too short, a length field
// that disagrees with n, a length in the dead zone between the ACK and EOF
// shapes, an oversized packet, or a checksum mismatch. The codec never
// signals an error upward — callers are expected to silently drop on
// ok==false, per spec.
func Decode(b []byte, n int, sum func([]byte) uint16) (Packet, bool) {
	if n < AckHeaderSize || n > MaxPacketSize {
		return Packet{}, false
	}
	if n > AckHeaderSize && n < DataHeaderSize {
		return Packet{}, false
	}
	b = b[:n]

	wantLen := binary.BigEndian.Uint16(b[offLen:])
	if int(wantLen) != n {
		return Packet{}, false
	}

	seenCksum := binary.BigEndian.Uint16(b[offCksum:])
	scratch := make([]byte, n)
	copy(scratch, b)
	binary.BigEndian.PutUint16(scratch[offCksum:], 0)
	if sum(scratch) != seenCksum {
		return Packet{}, false
	}

	if n == AckHeaderSize {
		return Packet{
			IsAck: true,
			Ackno: binary.BigEndian.Uint32(b[offAckno:]),
		}, true
	}

	p := Packet{
		Ackno: binary.BigEndian.Uint32(b[offAckno:]),
		Seqno: binary.BigEndian.Uint32(b[offSeqno:]),
	}
	if n == DataHeaderSize {
		p.IsEOF = true
		return p, true
	}
	p.Payload = append([]byte(nil), b[DataHeaderSize:]...)
	return p, true
}

// Len returns the on-wire length field of an already-encoded packet.
func Len(encoded []byte) uint16 {
	return binary.BigEndian.Uint16(encoded[offLen:])
}

// SeqnoOf returns the seqno field of an already-encoded data/EOF packet.
// Callers must not call this on an encoded ACK packet (len 8).
func SeqnoOf(encoded []byte) uint32 {
	return binary.BigEndian.Uint32(encoded[offSeqno:])
}
