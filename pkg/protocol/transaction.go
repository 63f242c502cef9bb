package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/viewdiff/pkg/mutation"
	"github.com/vango-dev/viewdiff/pkg/shadow"
)

// ErrInvalidMutation is returned for an unknown mutation type byte.
var ErrInvalidMutation = errors.New("protocol: invalid mutation type")

// Transaction is a numbered mutation list for one surface, as sent in a
// FrameTransaction payload.
//
// Parents travel by tag only: a decoded mutation's Parent view carries
// just the Tag. Every other view is sent in full.
type Transaction struct {
	Surface   string
	Number    uint64
	Mutations mutation.List
}

// EncodeTransaction encodes a transaction to bytes.
func EncodeTransaction(tx *Transaction) ([]byte, error) {
	e := NewEncoderWithCap(64 + 48*len(tx.Mutations))
	if err := EncodeTransactionTo(e, tx); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeTransactionTo encodes a transaction using the provided encoder.
func EncodeTransactionTo(e *Encoder, tx *Transaction) error {
	e.WriteString(tx.Surface)
	e.WriteUvarint(tx.Number)
	e.WriteUvarint(uint64(len(tx.Mutations)))
	for i := range tx.Mutations {
		if err := encodeMutation(e, &tx.Mutations[i]); err != nil {
			return fmt.Errorf("mutation %d: %w", i, err)
		}
	}
	return nil
}

func encodeMutation(e *Encoder, m *mutation.Mutation) error {
	e.WriteByte(byte(m.Type))
	switch m.Type {
	case mutation.TypeCreate:
		return encodeView(e, &m.New)
	case mutation.TypeDelete:
		return encodeView(e, &m.Old)
	case mutation.TypeInsert:
		e.WriteTag(m.Parent.Tag)
		if err := encodeView(e, &m.New); err != nil {
			return err
		}
	case mutation.TypeRemove:
		e.WriteTag(m.Parent.Tag)
		if err := encodeView(e, &m.Old); err != nil {
			return err
		}
	case mutation.TypeUpdate:
		e.WriteTag(m.Parent.Tag)
		if err := encodeView(e, &m.Old); err != nil {
			return err
		}
		if err := encodeView(e, &m.New); err != nil {
			return err
		}
	default:
		return ErrInvalidMutation
	}
	e.WriteSvarint(int64(m.Index))
	return nil
}

func encodeView(e *Encoder, v *shadow.View) error {
	e.WriteTag(v.Tag)
	e.WriteString(v.ComponentName)
	e.WriteUvarint(uint64(v.ComponentHandle))

	e.WriteRect(v.LayoutMetrics.Frame)

	e.WriteBool(v.Props != nil)
	if v.Props != nil {
		e.WriteUvarint(uint64(v.Props.Len()))
		for _, k := range v.Props.Keys() {
			val, _ := v.Props.Get(k)
			e.WriteString(k)
			if err := EncodeValue(e, val); err != nil {
				return fmt.Errorf("prop %q: %w", k, err)
			}
		}
	}

	e.WriteBool(v.EventEmitter != nil)
	if em := v.EventEmitter; em != nil {
		e.WriteTag(em.Target)
		e.WriteUvarint(uint64(len(em.Events)))
		for _, name := range em.Events {
			e.WriteString(name)
		}
	}

	e.WriteBool(v.State != nil)
	if v.State != nil {
		e.WriteSvarint(v.State.Revision)
		if err := EncodeValue(e, v.State.Value); err != nil {
			return fmt.Errorf("state: %w", err)
		}
	}

	e.WriteBool(v.LocalData != nil)
	if v.LocalData != nil {
		if err := EncodeValue(e, v.LocalData.Value); err != nil {
			return fmt.Errorf("local data: %w", err)
		}
	}
	return nil
}

// DecodeTransaction decodes a transaction from bytes. The whole input must
// be consumed.
func DecodeTransaction(data []byte) (*Transaction, error) {
	d := NewDecoder(data)
	tx, err := DecodeTransactionFrom(d)
	if err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	return tx, nil
}

// DecodeTransactionFrom decodes a transaction from a decoder.
func DecodeTransactionFrom(d *Decoder) (*Transaction, error) {
	surface, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	number, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	tx := &Transaction{Surface: surface, Number: number}
	if count > 0 {
		tx.Mutations = make(mutation.List, count)
	}
	for i := range tx.Mutations {
		if err := decodeMutation(d, &tx.Mutations[i]); err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
	}
	return tx, nil
}

func decodeMutation(d *Decoder, m *mutation.Mutation) error {
	b, err := d.ReadByte()
	if err != nil {
		return err
	}
	m.Type = mutation.Type(b)
	m.Index = -1

	switch m.Type {
	case mutation.TypeCreate:
		return decodeView(d, &m.New)
	case mutation.TypeDelete:
		return decodeView(d, &m.Old)
	case mutation.TypeInsert, mutation.TypeRemove, mutation.TypeUpdate:
		parent, err := d.ReadTag()
		if err != nil {
			return err
		}
		m.Parent = shadow.View{Tag: parent}
		if m.Type != mutation.TypeInsert {
			if err := decodeView(d, &m.Old); err != nil {
				return err
			}
		}
		if m.Type != mutation.TypeRemove {
			if err := decodeView(d, &m.New); err != nil {
				return err
			}
		}
	default:
		return ErrInvalidMutation
	}

	index, err := d.ReadSvarint()
	if err != nil {
		return err
	}
	m.Index = int(index)
	return nil
}

func decodeView(d *Decoder, v *shadow.View) error {
	var err error
	if v.Tag, err = d.ReadTag(); err != nil {
		return err
	}
	if v.ComponentName, err = d.ReadString(); err != nil {
		return err
	}
	handle, err := d.ReadUvarint()
	if err != nil {
		return err
	}
	v.ComponentHandle = shadow.ComponentHandle(handle)

	if v.LayoutMetrics.Frame, err = d.ReadRect(); err != nil {
		return err
	}

	if ok, err := d.ReadBool(); err != nil {
		return err
	} else if ok {
		count, err := d.ReadCollectionCount()
		if err != nil {
			return err
		}
		values := make(map[string]any, count)
		for range count {
			key, err := d.ReadString()
			if err != nil {
				return err
			}
			if values[key], err = DecodeValue(d); err != nil {
				return fmt.Errorf("prop %q: %w", key, err)
			}
		}
		v.Props = shadow.NewProps(values)
	}

	if ok, err := d.ReadBool(); err != nil {
		return err
	} else if ok {
		target, err := d.ReadTag()
		if err != nil {
			return err
		}
		count, err := d.ReadCollectionCount()
		if err != nil {
			return err
		}
		em := &shadow.EventEmitter{Target: target}
		if count > 0 {
			em.Events = make([]string, count)
		}
		for i := range em.Events {
			if em.Events[i], err = d.ReadString(); err != nil {
				return err
			}
		}
		v.EventEmitter = em
	}

	if ok, err := d.ReadBool(); err != nil {
		return err
	} else if ok {
		rev, err := d.ReadSvarint()
		if err != nil {
			return err
		}
		value, err := DecodeValue(d)
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}
		v.State = &shadow.State{Revision: rev, Value: value}
	}

	if ok, err := d.ReadBool(); err != nil {
		return err
	} else if ok {
		value, err := DecodeValue(d)
		if err != nil {
			return fmt.Errorf("local data: %w", err)
		}
		v.LocalData = &shadow.LocalData{Value: value}
	}
	return nil
}

// TransactionFrames encodes tx and splits it into FrameTransaction frames.
func TransactionFrames(tx *Transaction) ([]*Frame, error) {
	payload, err := EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	return SplitFrames(FrameTransaction, payload)
}
