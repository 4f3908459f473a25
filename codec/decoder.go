package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

// Unmarshal takes data and a destination pointer to unmarshal the data to.
func Unmarshal(data []byte, dst interface{}) error {
	return NewDecoder(bytes.NewReader(data)).Decode(dst)
}

// Unmarshaler is the interface for custom wire decoding for a given type
type Unmarshaler interface {
	UnmarshalWire(io.Reader) error
}

// Decoder is used to decode from an io.Reader
type Decoder struct {
	decodeState
}

// NewDecoder is constructor for Decoder
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{decodeState{Reader: r}}
}

// Decode accepts a pointer to a destination and decodes into the supplied destination
func (d *Decoder) Decode(dst interface{}) error {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return fmt.Errorf("%w: %T", ErrUnsupportedDestination, dst)
	}
	return d.unmarshal(dstv.Elem())
}

// Remaining reports unread bytes when the underlying reader is a *bytes.Reader.
func (d *Decoder) Remaining() int {
	if r, ok := d.Reader.(*bytes.Reader); ok {
		return r.Len()
	}
	return 0
}

type decodeState struct {
	io.Reader
}

var unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()

func (ds *decodeState) unmarshal(dstv reflect.Value) (err error) {
	if dstv.Kind() == reflect.Ptr {
		return ds.decodePointer(dstv)
	}
	if dstv.CanAddr() && dstv.Addr().Type().Implements(unmarshalerType) {
		return dstv.Addr().Interface().(Unmarshaler).UnmarshalWire(ds.Reader)
	}

	if dstv.CanAddr() {
		if vdt, ok := dstv.Addr().Interface().(VaryingDataType); ok {
			return ds.decodeVaryingDataType(vdt)
		}
	}

	switch dstv.Kind() {
	case reflect.Bool:
		err = ds.decodeBool(dstv)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		err = ds.decodeFixedWidthInt(dstv)
	case reflect.String:
		err = ds.decodeBytes(dstv)
	case reflect.Struct:
		err = ds.decodeStruct(dstv)
	case reflect.Array:
		err = ds.decodeArray(dstv)
	case reflect.Slice:
		if dstv.Type().Elem().Kind() == reflect.Uint8 {
			err = ds.decodeBytes(dstv)
		} else {
			err = ds.decodeSlice(dstv)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, dstv.Type())
	}
	return
}

func (ds *decodeState) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(ds.Reader, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (ds *decodeState) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(ds.Reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (ds *decodeState) decodePointer(dstv reflect.Value) error {
	rb, err := ds.ReadByte()
	if err != nil {
		return err
	}
	switch rb {
	case 0x00:
		dstv.Set(reflect.Zero(dstv.Type()))
		return nil
	case 0x01:
		tempElem := reflect.New(dstv.Type().Elem())
		if err = ds.unmarshal(tempElem.Elem()); err != nil {
			return err
		}
		dstv.Set(tempElem)
		return nil
	default:
		return fmt.Errorf("%w: value: %v", ErrUnsupportedOption, rb)
	}
}

func (ds *decodeState) decodeVaryingDataType(vdt VaryingDataType) error {
	b, err := ds.ReadByte()
	if err != nil {
		return err
	}
	val, err := vdt.ValueAt(uint(b))
	if err != nil {
		return fmt.Errorf("%w: for key %d %v", ErrUnknownVaryingDataTypeValue, uint(b), err)
	}
	if val == nil {
		return vdt.SetValue(nil)
	}
	tempVal := reflect.New(reflect.TypeOf(val))
	tempVal.Elem().Set(reflect.ValueOf(val))
	if err = ds.unmarshal(tempVal.Elem()); err != nil {
		return err
	}
	return vdt.SetValue(tempVal.Elem().Interface())
}

func (ds *decodeState) decodeSlice(dstv reflect.Value) error {
	l, err := ds.decodeLength()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(dstv.Type(), 0, int(min(l, maxPrealloc)))
	for i := uint(0); i < l; i++ {
		tempElem := reflect.New(dstv.Type().Elem()).Elem()
		if err = ds.unmarshal(tempElem); err != nil {
			return err
		}
		out = reflect.Append(out, tempElem)
	}
	dstv.Set(out)
	return nil
}

// maxPrealloc bounds allocation driven by an untrusted length prefix.
const maxPrealloc = 1024

func (ds *decodeState) decodeArray(dstv reflect.Value) error {
	temp := reflect.New(dstv.Type()).Elem()
	if dstv.Type().Elem().Kind() == reflect.Uint8 {
		buf, err := ds.readFull(temp.Len())
		if err != nil {
			return err
		}
		reflect.Copy(temp, reflect.ValueOf(buf))
		dstv.Set(temp)
		return nil
	}
	for i := 0; i < temp.Len(); i++ {
		if err := ds.unmarshal(temp.Index(i)); err != nil {
			return err
		}
	}
	dstv.Set(temp)
	return nil
}

var fieldCache sync.Map

// exportedFields returns the indices of the exported fields of a struct type.
func exportedFields(typ reflect.Type) []int {
	if v, ok := fieldCache.Load(typ); ok {
		return v.([]int)
	}
	var indices []int
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).IsExported() {
			indices = append(indices, i)
		}
	}
	fieldCache.Store(typ, indices)
	return indices
}

// decodeStruct decodes exported fields in declaration order
func (ds *decodeState) decodeStruct(dstv reflect.Value) error {
	temp := reflect.New(dstv.Type()).Elem()
	for _, i := range exportedFields(dstv.Type()) {
		if err := ds.unmarshal(temp.Field(i)); err != nil {
			return fmt.Errorf("failed to unmarshal field %s: %w", dstv.Type().Field(i).Name, err)
		}
	}
	dstv.Set(temp)
	return nil
}

func (ds *decodeState) decodeBool(dstv reflect.Value) error {
	rb, err := ds.ReadByte()
	if err != nil {
		return err
	}
	switch rb {
	case 0x00:
		dstv.SetBool(false)
	case 0x01:
		dstv.SetBool(true)
	default:
		return errDecodeBool
	}
	return nil
}

// decodeUint decodes the compact unsigned form written by encodeUint
func (ds *decodeState) decodeUint() (uint64, error) {
	prefix, err := ds.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("reading byte: %w", err)
	}
	switch prefix % 4 {
	case 0:
		return uint64(prefix >> 2), nil
	case 1:
		b, err := ds.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("reading byte: %w", err)
		}
		value := uint64(binary.LittleEndian.Uint16([]byte{prefix, b}) >> 2)
		if value < 1<<6 {
			return 0, fmt.Errorf("%w: %d", ErrU16OutOfRange, value)
		}
		return value, nil
	case 2:
		buf, err := ds.readFull(3)
		if err != nil {
			return 0, fmt.Errorf("reading bytes: %w", err)
		}
		value := uint64(binary.LittleEndian.Uint32(append([]byte{prefix}, buf...)) >> 2)
		if value < 1<<14 {
			return 0, fmt.Errorf("%w: %d", ErrU32OutOfRange, value)
		}
		return value, nil
	default:
		byteLen := int(prefix>>2) + 4
		if byteLen > 8 {
			return 0, fmt.Errorf("%w: %d", ErrCompactUintPrefixUnknown, prefix)
		}
		buf, err := ds.readFull(byteLen)
		if err != nil {
			return 0, fmt.Errorf("reading bytes: %w", err)
		}
		tmp := make([]byte, 8)
		copy(tmp, buf)
		value := binary.LittleEndian.Uint64(tmp)
		if value < 1<<30 {
			return 0, fmt.Errorf("%w: %d", ErrU64OutOfRange, value)
		}
		return value, nil
	}
}

var (
	ErrU16OutOfRange               = errors.New("uint16 out of range")
	ErrU32OutOfRange               = errors.New("uint32 out of range")
	ErrU64OutOfRange               = errors.New("uint64 out of range")
	ErrCompactUintPrefixUnknown    = errors.New("unknown prefix for compact uint")
	ErrUnsupportedCustomPrimitive  = errors.New("unsupported custom primitive")
	ErrUnsupportedDestination      = errors.New("unsupported destination type")
	ErrUnsupportedType             = errors.New("unsupported type")
	ErrUnknownVaryingDataTypeValue = errors.New("unknown varying data type value")
	ErrUnsupportedOption           = errors.New("unsupported option")
	ErrLengthTooLarge              = errors.New("length prefix too large")
	errDecodeBool                  = errors.New("failed to decode bool")
)

// EncodeVaryingDataType is an interface for encoding varying data types with discriminators.
type EncodeVaryingDataType interface {
	IndexValue() (int, interface{}, error)
}

// VaryingDataType represents a generic interface for types that can vary and need a discriminator.
// ValueAt returns a zero value of the variant's payload type, or nil for a payload-less variant.
type VaryingDataType interface {
	ValueAt(index uint) (interface{}, error)
	SetValue(interface{}) error
}

// maxLength caps any decoded sequence length.
const maxLength = 1 << 24

func (ds *decodeState) decodeLength() (uint, error) {
	l, err := ds.decodeUint()
	if err != nil {
		return 0, fmt.Errorf("decoding length: %w", err)
	}
	if l > maxLength {
		return 0, fmt.Errorf("%w: %d", ErrLengthTooLarge, l)
	}
	return uint(l), nil
}

// decodeBytes decodes a length-prefixed []byte or string
func (ds *decodeState) decodeBytes(dstv reflect.Value) error {
	length, err := ds.decodeLength()
	if err != nil {
		return err
	}
	b, err := ds.readFull(int(length))
	if err != nil {
		return err
	}
	dstv.Set(reflect.ValueOf(b).Convert(dstv.Type()))
	return nil
}

// decodeFixedWidthInt reads little-endian integers into any integer kind
func (ds *decodeState) decodeFixedWidthInt(dstv reflect.Value) error {
	size := int(dstv.Type().Size())
	buf, err := ds.readFull(size)
	if err != nil {
		return err
	}
	tmp := make([]byte, 8)
	copy(tmp, buf)
	v := binary.LittleEndian.Uint64(tmp)
	switch dstv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		shift := 64 - 8*uint(size)
		dstv.SetInt(int64(v<<shift) >> shift)
	default:
		dstv.SetUint(v)
	}
	return nil
}
