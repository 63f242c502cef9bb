package protocol

import "fmt"

// ErrorCode identifies a stream error.
type ErrorCode uint16

const (
	ErrUnknown         ErrorCode = 0x0000
	ErrInvalidFrame    ErrorCode = 0x0001 // client sent a frame the server cannot decode
	ErrSurfaceNotFound ErrorCode = 0x0002
	ErrSlowConsumer    ErrorCode = 0x0003 // subscriber fell behind and was dropped
	ErrUnencodable     ErrorCode = 0x0004 // a transaction could not be put on the wire
	ErrServerError     ErrorCode = 0x0100
	ErrVersionMismatch ErrorCode = 0x0104
)

var errorCodeNames = map[ErrorCode]string{
	ErrInvalidFrame:    "InvalidFrame",
	ErrSurfaceNotFound: "SurfaceNotFound",
	ErrSlowConsumer:    "SlowConsumer",
	ErrUnencodable:     "Unencodable",
	ErrServerError:     "ServerError",
	ErrVersionMismatch: "VersionMismatch",
}

func (ec ErrorCode) String() string {
	if name, ok := errorCodeNames[ec]; ok {
		return name
	}
	return "Unknown"
}

// ErrorMessage is the payload of a FrameError. Number is the last
// transaction the server sent on the stream before the error, 0 if none.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Number  uint64
	Fatal   bool // the server closes the stream after sending it
}

// NewError returns a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError returns a fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// At sets the transaction number the error follows.
func (em *ErrorMessage) At(number uint64) *ErrorMessage {
	em.Number = number
	return em
}

// EncodeErrorMessage encodes em.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoderWithCap(16 + len(em.Message))
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteUvarint(em.Number)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes a FrameError payload. The whole input must be
// consumed.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	em := &ErrorMessage{Code: ErrorCode(code)}
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Number, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return em, nil
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	msg := fmt.Sprintf("%s: %s", em.Code, em.Message)
	if em.Fatal {
		msg = "fatal: " + msg
	}
	return msg
}

// IsFatal reports whether the stream ends after this error.
func (em *ErrorMessage) IsFatal() bool {
	return em.Fatal
}
