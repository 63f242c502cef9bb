package protocol

import (
	"testing"
)

func TestControlEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		in   *Control
	}{
		{"ping", NewPing(1700000000000)},
		{"pong", NewPong(1700000000001)},
		{"resync", NewResyncRequest(17)},
		{"close", NewClose(CloseSlowConsumer, "subscriber buffer full")},
		{"close empty", NewClose(CloseNormal, "")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeControl(EncodeControl(tc.in))
			if err != nil {
				t.Fatalf("DecodeControl() error = %v", err)
			}
			if *got != *tc.in {
				t.Errorf("DecodeControl() = %+v, want %+v", got, tc.in)
			}
		})
	}
}

func TestControlTypeString(t *testing.T) {
	tests := []struct {
		ct   ControlType
		want string
	}{
		{ControlPing, "Ping"},
		{ControlPong, "Pong"},
		{ControlResyncRequest, "ResyncRequest"},
		{ControlClose, "Close"},
		{ControlType(0xFF), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.ct.String(); got != tc.want {
			t.Errorf("ControlType(%d).String() = %q, want %q", tc.ct, got, tc.want)
		}
	}
	if got := CloseSlowConsumer.String(); got != "SlowConsumer" {
		t.Errorf("CloseSlowConsumer.String() = %q", got)
	}
}

func TestAckEncodeDecode(t *testing.T) {
	for _, n := range []uint64{0, 1, 127, 128, 1 << 40} {
		got, err := DecodeAck(EncodeAck(&Ack{Number: n}))
		if err != nil || got.Number != n {
			t.Errorf("Ack(%d) round trip = %+v, %v", n, got, err)
		}
	}
	if _, err := DecodeAck(nil); err == nil {
		t.Error("DecodeAck(nil) succeeded")
	}
}

func TestHelloEncodeDecode(t *testing.T) {
	in := &Hello{Version: CurrentVersion, Surface: "main", Number: 12, ServerTime: 1700000000000, Root: richView(1)}
	data, err := EncodeHello(in)
	if err != nil {
		t.Fatalf("EncodeHello() error = %v", err)
	}
	got, err := DecodeHello(data)
	if err != nil {
		t.Fatalf("DecodeHello() error = %v", err)
	}
	if got.Version != in.Version || got.Surface != in.Surface || got.Number != in.Number || got.ServerTime != in.ServerTime {
		t.Errorf("DecodeHello() = %+v, want %+v", got, in)
	}
	if !got.Root.Equal(in.Root) {
		t.Errorf("root view = %+v, want %+v", got.Root, in.Root)
	}
	if !got.Version.Compatible() {
		t.Error("current version is not compatible with itself")
	}
	if (ProtocolVersion{Major: CurrentVersion.Major + 1}).Compatible() {
		t.Error("different major version reported compatible")
	}
}

func TestErrorMessageEncodeDecode(t *testing.T) {
	tests := []*ErrorMessage{
		NewError(ErrSurfaceNotFound, "no surface \"x\""),
		NewFatalError(ErrSlowConsumer, "dropped").At(1 << 40),
		NewError(ErrUnknown, ""),
	}
	for _, in := range tests {
		got, err := DecodeErrorMessage(EncodeErrorMessage(in))
		if err != nil {
			t.Fatalf("DecodeErrorMessage() error = %v", err)
		}
		if *got != *in {
			t.Errorf("DecodeErrorMessage() = %+v, want %+v", got, in)
		}
	}
}

func TestErrorMessageError(t *testing.T) {
	if got := NewError(ErrSurfaceNotFound, "gone").Error(); got != "SurfaceNotFound: gone" {
		t.Errorf("Error() = %q", got)
	}
	fatal := NewFatalError(ErrVersionMismatch, "v2")
	if got := fatal.Error(); got != "fatal: VersionMismatch: v2" {
		t.Errorf("Error() = %q", got)
	}
	if !fatal.IsFatal() {
		t.Error("IsFatal() = false")
	}
	if got := ErrorCode(0x7777).String(); got != "Unknown" {
		t.Errorf("unregistered code String() = %q", got)
	}
}
