package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload of a single frame (2^16 - 1 bytes).
	MaxPayloadSize = 65535

	// MaxMessageSize caps a payload reassembled from continued frames.
	MaxMessageSize = DefaultMaxAllocation
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHello       FrameType = 0x00 // Server → client stream setup
	FrameTransaction FrameType = 0x02 // Server → client mutation transaction
	FrameControl     FrameType = 0x03 // Ping, pong, resync, close
	FrameAck         FrameType = 0x04 // Client → server acknowledgment
	FrameError       FrameType = 0x05 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHello:
		return "Hello"
	case FrameTransaction:
		return "Transaction"
	case FrameControl:
		return "Control"
	case FrameAck:
		return "Ack"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Valid reports whether ft is a known frame type.
func (ft FrameType) Valid() bool {
	return ft.String() != "Unknown"
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagPriority  FrameFlags = 0x08 // Deliver ahead of queued frames
	FlagContinued FrameFlags = 0x10 // More chunks of this payload follow
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
	ErrFrameSequence    = errors.New("protocol: continued frame type mismatch")
)

// Frame is a protocol frame with header and payload.
//
// Wire format (4 bytes header + variable payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│  Payload (variable length)                                  │
//	└─────────────────────────────────────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a new frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	e := NewEncoderWithCap(FrameHeaderSize + len(f.Payload))
	f.EncodeTo(e)
	return e.Bytes()
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint16(uint16(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrameHeader decodes the frame header, returning type, flags and
// payload length.
func DecodeFrameHeader(data []byte) (FrameType, FrameFlags, int, error) {
	if len(data) < FrameHeaderSize {
		return 0, 0, 0, ErrBufferTooShort
	}
	ft := FrameType(data[0])
	if !ft.Valid() {
		return 0, 0, 0, ErrInvalidFrameType
	}
	length := int(data[2])<<8 | int(data[3])
	return ft, FrameFlags(data[1]), length, nil
}

// DecodeFrame decodes one frame. data must hold exactly the header and
// the full payload, as a websocket message does.
func DecodeFrame(data []byte) (*Frame, error) {
	ft, flags, length, err := DecodeFrameHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}
	if len(data) > FrameHeaderSize+length {
		return nil, ErrTrailingBytes
	}
	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft, flags, length, err := DecodeFrameHeader(header)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// SplitFrames cuts payload into frames of at most MaxPayloadSize bytes.
// Every frame but the last carries FlagContinued. An empty payload yields
// one empty frame.
func SplitFrames(ft FrameType, payload []byte) ([]*Frame, error) {
	if len(payload) > MaxMessageSize {
		return nil, ErrFrameTooLarge
	}
	var frames []*Frame
	for {
		n := min(len(payload), MaxPayloadSize)
		f := NewFrame(ft, payload[:n])
		payload = payload[n:]
		if len(payload) > 0 {
			f.Flags |= FlagContinued
		}
		frames = append(frames, f)
		if len(payload) == 0 {
			return frames, nil
		}
	}
}

// Assembler joins continued frames back into whole payloads.
type Assembler struct {
	typ     FrameType
	pending []byte
	open    bool
}

// Add consumes f. It returns the frame holding the complete payload once
// the last chunk arrives, or nil while more chunks are expected.
func (a *Assembler) Add(f *Frame) (*Frame, error) {
	if a.open && f.Type != a.typ {
		a.Reset()
		return nil, ErrFrameSequence
	}
	if !a.open && !f.Flags.Has(FlagContinued) {
		return f, nil
	}
	if len(a.pending)+len(f.Payload) > MaxMessageSize {
		a.Reset()
		return nil, ErrFrameTooLarge
	}
	a.typ = f.Type
	a.open = true
	a.pending = append(a.pending, f.Payload...)
	if f.Flags.Has(FlagContinued) {
		return nil, nil
	}
	whole := &Frame{Type: a.typ, Flags: f.Flags, Payload: a.pending}
	a.pending = nil
	a.open = false
	return whole, nil
}

// Reset drops any partially assembled payload.
func (a *Assembler) Reset() {
	a.pending = nil
	a.open = false
}
