package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// Encoder encodes to a given io.Writer.
type Encoder struct {
	encodeState
}

// NewEncoder creates a new encoder with the given writer.
func NewEncoder(writer io.Writer) *Encoder {
	return &Encoder{encodeState{Writer: writer}}
}

// Encode encodes value to the encoder writer.
func (e *Encoder) Encode(value interface{}) error {
	return e.marshal(value)
}

// Marshal takes in an interface{} and attempts to marshal into []byte
func Marshal(v interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	es := encodeState{Writer: buffer}
	if err := es.marshal(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Marshaler is the interface for custom wire marshalling for a given type
type Marshaler interface {
	MarshalWire() ([]byte, error)
}

// MustMarshal runs Marshal and panics on error.
func MustMarshal(v interface{}) []byte {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

type encodeState struct {
	io.Writer
}

func (es *encodeState) marshal(in interface{}) (err error) {
	if in == nil {
		return fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	if reflect.TypeOf(in).Kind() == reflect.Ptr {
		// anything that is a pointer is an option: {nil, T}
		elem := reflect.ValueOf(in).Elem()
		if !elem.IsValid() {
			_, err = es.Write([]byte{0})
			return
		}
		if _, err = es.Write([]byte{1}); err != nil {
			return
		}
		return es.marshal(elem.Interface())
	}

	if marshaler, ok := in.(Marshaler); ok {
		var b []byte
		b, err = marshaler.MarshalWire()
		if err != nil {
			return
		}
		_, err = es.Write(b)
		return
	}

	if vdt, ok := in.(EncodeVaryingDataType); ok {
		return es.encodeVaryingDataType(vdt)
	}

	switch in := in.(type) {
	case int8, uint8, int16, uint16, int32, uint32, int64, uint64:
		err = es.encodeFixedWidthInt(in)
	case []byte:
		err = es.encodeBytes(in)
	case string:
		err = es.encodeBytes([]byte(in))
	case bool:
		err = es.encodeBool(in)
	default:
		switch reflect.TypeOf(in).Kind() {
		case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.String, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			err = es.encodeCustomPrimitive(in)
		case reflect.Struct:
			err = es.encodeStruct(in)
		case reflect.Array:
			err = es.encodeArray(in)
		case reflect.Slice:
			err = es.encodeSlice(in)
		default:
			err = fmt.Errorf("%w: %T", ErrUnsupportedType, in)
		}
	}
	return
}

// primitiveTypes maps a kind to the builtin type that named types of that kind convert to.
var primitiveTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:   reflect.TypeOf(false),
	reflect.Int8:   reflect.TypeOf(int8(0)),
	reflect.Int16:  reflect.TypeOf(int16(0)),
	reflect.Int32:  reflect.TypeOf(int32(0)),
	reflect.Int64:  reflect.TypeOf(int64(0)),
	reflect.String: reflect.TypeOf(""),
	reflect.Uint8:  reflect.TypeOf(uint8(0)),
	reflect.Uint16: reflect.TypeOf(uint16(0)),
	reflect.Uint32: reflect.TypeOf(uint32(0)),
	reflect.Uint64: reflect.TypeOf(uint64(0)),
}

// encodeCustomPrimitive encodes named types over basic Go primitives
func (es *encodeState) encodeCustomPrimitive(in interface{}) error {
	typ, ok := primitiveTypes[reflect.TypeOf(in).Kind()]
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedCustomPrimitive, in)
	}
	return es.marshal(reflect.ValueOf(in).Convert(typ).Interface())
}

// encodeVaryingDataType encodes varying data types with discriminator
func (es *encodeState) encodeVaryingDataType(vdt EncodeVaryingDataType) error {
	index, value, err := vdt.IndexValue()
	if err != nil {
		return err
	}
	if _, err = es.Write([]byte{byte(index)}); err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	return es.marshal(value)
}

// encodeSlice encodes a slice with length prefix
func (es *encodeState) encodeSlice(in interface{}) error {
	v := reflect.ValueOf(in)
	if err := es.encodeLength(v.Len()); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := es.marshal(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// encodeArray encodes an array without length prefix
func (es *encodeState) encodeArray(in interface{}) error {
	v := reflect.ValueOf(in)
	if v.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		_, err := es.Write(b)
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := es.marshal(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// encodeBool encodes a boolean value
func (es *encodeState) encodeBool(l bool) (err error) {
	if l {
		_, err = es.Write([]byte{0x01})
	} else {
		_, err = es.Write([]byte{0x00})
	}
	return
}

// encodeBytes encodes a byte slice with length prefix
func (es *encodeState) encodeBytes(b []byte) error {
	if err := es.encodeLength(len(b)); err != nil {
		return err
	}
	_, err := es.Write(b)
	return err
}

// encodeFixedWidthInt encodes fixed width integers
func (es *encodeState) encodeFixedWidthInt(i interface{}) (err error) {
	switch i := i.(type) {
	case int8:
		err = binary.Write(es, binary.LittleEndian, byte(i))
	case uint8:
		err = binary.Write(es, binary.LittleEndian, i)
	case int16:
		err = binary.Write(es, binary.LittleEndian, uint16(i))
	case uint16:
		err = binary.Write(es, binary.LittleEndian, i)
	case int32:
		err = binary.Write(es, binary.LittleEndian, uint32(i))
	case uint32:
		err = binary.Write(es, binary.LittleEndian, i)
	case int64:
		err = binary.Write(es, binary.LittleEndian, uint64(i))
	case uint64:
		err = binary.Write(es, binary.LittleEndian, i)
	default:
		err = fmt.Errorf("invalid type: %T", i)
	}
	return
}

// encodeStruct encodes exported struct fields in declaration order
func (es *encodeState) encodeStruct(in interface{}) error {
	v := reflect.ValueOf(in)
	for _, i := range exportedFields(v.Type()) {
		if err := es.marshal(v.Field(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// encodeLength encodes the length of a collection
func (es *encodeState) encodeLength(l int) error {
	return es.encodeUint(uint(l))
}

// encodeUint writes the compact form: two low bits select 1, 2, 4 or 4+n byte modes.
func (es *encodeState) encodeUint(i uint) (err error) {
	switch {
	case i < 1<<6:
		err = binary.Write(es, binary.LittleEndian, byte(i)<<2)
	case i < 1<<14:
		err = binary.Write(es, binary.LittleEndian, uint16(i<<2)+1)
	case i < 1<<30:
		err = binary.Write(es, binary.LittleEndian, uint32(i<<2)+2)
	default:
		o := make([]byte, 8)
		m := i
		var numBytes int
		for numBytes = 0; numBytes < 8 && m != 0; numBytes++ {
			m = m >> 8
		}
		if numBytes < 4 {
			numBytes = 4
		}
		lengthByte := uint8(numBytes-4)<<2 + 3
		if err = binary.Write(es, binary.LittleEndian, lengthByte); err == nil {
			binary.LittleEndian.PutUint64(o, uint64(i))
			_, err = es.Write(o[:numBytes])
		}
	}
	return
}
