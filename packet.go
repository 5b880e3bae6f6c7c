// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package mumble

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gomumble/mumble/message"
)

// HeaderLen is the size in bytes of a frame header: a 2-byte message type
// followed by a 4-byte payload length, both big-endian.
const HeaderLen = 6

// MaxPayloadLen is the largest payload length accepted from the wire.
// A header declaring more than this is a protocol error.
const MaxPayloadLen = 8 << 20

// A Packet is one frame of the control protocol.
type Packet struct {
	Type    message.Type
	Payload []byte
}

// NewPacket returns a packet carrying the encoding of m.
func NewPacket(m message.Message) (*Packet, error) {
	typ, data, err := message.Encode(m)
	if err != nil {
		return nil, err
	}
	return &Packet{Type: typ, Payload: data}, nil
}

// Decode decodes the payload of p according to its type.
func (p *Packet) Decode() (message.Message, error) { return message.Decode(p.Type, p.Payload) }

// Header returns the encoded header for p.
func (p *Packet) Header() [HeaderLen]byte {
	var hdr [HeaderLen]byte
	binary.BigEndian.PutUint16(hdr[0:], uint16(p.Type))
	binary.BigEndian.PutUint32(hdr[2:], uint32(len(p.Payload)))
	return hdr
}

// parseHeader decodes a frame header into its type and payload length.
func parseHeader(hdr []byte) (message.Type, uint32) {
	return message.Type(binary.BigEndian.Uint16(hdr[0:])), binary.BigEndian.Uint32(hdr[2:])
}

// WriteTo writes the packet to w in binary format. It satisfies io.WriterTo.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	hdr := p.Header()
	nw, err := w.Write(hdr[:])
	if err == nil && len(p.Payload) != 0 {
		var np int
		np, err = w.Write(p.Payload)
		nw += np
	}
	return int64(nw), err
}

// ReadFrom reads a packet from r in binary format. It satisfies io.ReaderFrom.
// A header declaring a payload longer than MaxPayloadLen reports ErrProtocol.
func (p *Packet) ReadFrom(r io.Reader) (int64, error) {
	var hdr [HeaderLen]byte
	nr, err := io.ReadFull(r, hdr[:])
	if err != nil {
		return int64(nr), fmt.Errorf("short packet header: %w", err)
	}
	typ, size := parseHeader(hdr[:])
	if size > MaxPayloadLen {
		return int64(nr), protocolError("payload length %d exceeds limit %d", size, MaxPayloadLen)
	}
	p.Type = typ
	p.Payload = make([]byte, int(size))
	np, err := io.ReadFull(r, p.Payload)
	nr += np
	if err != nil {
		return int64(nr), fmt.Errorf("%w: short payload (%d < %d bytes): %w", ErrProtocol, np, size, err)
	}
	return int64(nr), nil
}

// String returns a human-friendly rendering of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet(%v, %d bytes)", p.Type, len(p.Payload))
}

// A MessageLogger logs a message exchanged with the server.
type MessageLogger func(MessageInfo)

// A MessageInfo combines a message and a flag indicating whether the message
// was sent or received.
type MessageInfo struct {
	message.Message      // the message being logged
	Sent            bool // whether the message was sent (true) or received (false)
}

func (m MessageInfo) String() string {
	dir := "recv"
	if m.Sent {
		dir = "send"
	}
	switch t := m.Message.(type) {
	case *message.TextMessage:
		return fmt.Sprintf("%s %v %q", dir, t.Type(), truncate(message.Get(t.Message), 64))
	case *message.Tunnel:
		return fmt.Sprintf("%s %v [%d bytes]", dir, t.Type(), len(*t))
	}
	return fmt.Sprintf("%s %v", dir, m.Message.Type())
}

// truncate returns a prefix of s of at most n bytes, not splitting any
// UTF-8 encoded rune.
func truncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
