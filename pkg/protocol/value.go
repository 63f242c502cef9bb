package protocol

import (
	"fmt"
	"maps"
	"slices"
)

// ValueType tags an encoded dynamic value.
type ValueType uint8

const (
	ValueNull   ValueType = 0x00
	ValueBool   ValueType = 0x01
	ValueInt    ValueType = 0x02
	ValueFloat  ValueType = 0x03
	ValueString ValueType = 0x04
	ValueArray  ValueType = 0x05
	ValueObject ValueType = 0x06
)

// EncodeValue appends v. Integers of any width are written as ValueInt and
// decode as int64. Object keys are written in sorted order so equal values
// encode to equal bytes. Unsupported types fail.
func EncodeValue(e *Encoder, v any) error {
	switch val := v.(type) {
	case nil:
		e.WriteByte(byte(ValueNull))
	case bool:
		e.WriteByte(byte(ValueBool))
		e.WriteBool(val)
	case int:
		e.WriteByte(byte(ValueInt))
		e.WriteSvarint(int64(val))
	case int32:
		e.WriteByte(byte(ValueInt))
		e.WriteSvarint(int64(val))
	case int64:
		e.WriteByte(byte(ValueInt))
		e.WriteSvarint(val)
	case float32:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(float64(val))
	case float64:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(val)
	case string:
		e.WriteByte(byte(ValueString))
		e.WriteString(val)
	case []any:
		e.WriteByte(byte(ValueArray))
		e.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			if err := EncodeValue(e, item); err != nil {
				return err
			}
		}
	case []string:
		e.WriteByte(byte(ValueArray))
		e.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			e.WriteByte(byte(ValueString))
			e.WriteString(item)
		}
	case map[string]any:
		e.WriteByte(byte(ValueObject))
		e.WriteUvarint(uint64(len(val)))
		for _, k := range slices.Sorted(maps.Keys(val)) {
			e.WriteString(k)
			if err := EncodeValue(e, val[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("protocol: cannot encode value of type %T", v)
	}
	return nil
}

// DecodeValue reads a value written by EncodeValue.
func DecodeValue(d *Decoder) (any, error) {
	return decodeValue(d, newDepthContext(MaxValueDepth))
}

func decodeValue(d *Decoder, dc *depthContext) (any, error) {
	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch ValueType(typeByte) {
	case ValueNull:
		return nil, nil
	case ValueBool:
		return d.ReadBool()
	case ValueInt:
		return d.ReadSvarint()
	case ValueFloat:
		return d.ReadFloat64()
	case ValueString:
		return d.ReadString()

	case ValueArray:
		if err := dc.enter(); err != nil {
			return nil, err
		}
		defer dc.leave()
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		arr := make([]any, count)
		for i := range arr {
			if arr[i], err = decodeValue(d, dc); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case ValueObject:
		if err := dc.enter(); err != nil {
			return nil, err
		}
		defer dc.leave()
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any, count)
		for range count {
			key, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			if obj[key], err = decodeValue(d, dc); err != nil {
				return nil, err
			}
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("protocol: unknown value type 0x%02x", typeByte)
	}
}
