package protocol

// Ack is sent by a stream client after it has applied a transaction.
// The server uses it to measure how far behind the client is.
type Ack struct {
	Number uint64 // Last applied transaction number
}

// EncodeAck encodes an Ack to bytes.
func EncodeAck(ack *Ack) []byte {
	e := NewEncoderWithCap(10)
	e.WriteUvarint(ack.Number)
	return e.Bytes()
}

// DecodeAck decodes an Ack from bytes.
func DecodeAck(data []byte) (*Ack, error) {
	d := NewDecoder(data)
	number, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return &Ack{Number: number}, nil
}
