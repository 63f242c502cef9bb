package protocol

import (
	"fmt"

	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking v can read frames of
// CurrentVersion. Only the major version must match.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// Hello is the first frame of a stream. Root is the current snapshot of
// the surface's root view, which the host mounts the stream onto. Number
// is the surface's latest transaction number; the mount transaction that
// follows carries it.
type Hello struct {
	Version    ProtocolVersion
	Surface    string
	Number     uint64
	ServerTime uint64 // Unix milliseconds
	Root       shadow.View
}

// EncodeHello encodes a Hello to bytes.
func EncodeHello(h *Hello) ([]byte, error) {
	e := NewEncoderWithCap(64 + len(h.Surface))
	e.WriteByte(h.Version.Major)
	e.WriteByte(h.Version.Minor)
	e.WriteString(h.Surface)
	e.WriteUvarint(h.Number)
	e.WriteUint64(h.ServerTime)
	if err := encodeView(e, &h.Root); err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	return e.Bytes(), nil
}

// DecodeHello decodes a Hello from bytes.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	h := &Hello{}
	var err error
	if h.Version.Major, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if h.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if h.Surface, err = d.ReadString(); err != nil {
		return nil, err
	}
	if h.Number, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if h.ServerTime, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if err := decodeView(d, &h.Root); err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return h, nil
}
