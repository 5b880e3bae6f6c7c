// Copyright (C) 2026 The gomumble Authors. All Rights Reserved.

package message

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// A builder accumulates the protobuf wire encoding of a message. The zero
// value is ready for use as an empty builder.
//
// Optional fields are represented by pointers and repeated fields by slices;
// the put helpers skip nil pointers and empty slices so that field presence
// survives a round trip.
type builder struct {
	buf []byte
}

// Bytes reports the current contents of the buffer. The builder retains
// ownership of the slice.
func (b *builder) Bytes() []byte { return b.buf }

// Len reports the number of bytes currently in the buffer.
func (b *builder) Len() int { return len(b.buf) }

func (b *builder) varint(num protowire.Number, v uint64) {
	b.buf = protowire.AppendTag(b.buf, num, protowire.VarintType)
	b.buf = protowire.AppendVarint(b.buf, v)
}

func (b *builder) bytes(num protowire.Number, v []byte) {
	b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
	b.buf = protowire.AppendBytes(b.buf, v)
}

// integer is the set of scalar types carried as protobuf varints.
// Signed values are sign-extended to 64 bits as proto2 int32 requires.
type integer interface {
	~uint32 | ~uint64 | ~int32
}

func putVarint[T integer](b *builder, num protowire.Number, v *T) {
	if v != nil {
		b.varint(num, uint64(*v))
	}
}

func putVarints[T integer](b *builder, num protowire.Number, vs []T) {
	for _, v := range vs {
		b.varint(num, uint64(v))
	}
}

func putBool(b *builder, num protowire.Number, v *bool) {
	if v != nil {
		b.varint(num, protowire.EncodeBool(*v))
	}
}

func putFloat(b *builder, num protowire.Number, v *float32) {
	if v != nil {
		b.buf = protowire.AppendTag(b.buf, num, protowire.Fixed32Type)
		b.buf = protowire.AppendFixed32(b.buf, math.Float32bits(*v))
	}
}

func putString(b *builder, num protowire.Number, v *string) {
	if v != nil {
		b.buf = protowire.AppendTag(b.buf, num, protowire.BytesType)
		b.buf = protowire.AppendString(b.buf, *v)
	}
}

func putStrings(b *builder, num protowire.Number, vs []string) {
	for _, v := range vs {
		putString(b, num, &v)
	}
}

// putBytes encodes v if it is non-nil. An empty non-nil slice is present.
func putBytes(b *builder, num protowire.Number, v []byte) {
	if v != nil {
		b.bytes(num, v)
	}
}

func putBytesList(b *builder, num protowire.Number, vs [][]byte) {
	for _, v := range vs {
		b.bytes(num, v)
	}
}

// appender is implemented by every message and nested message type.
type appender interface {
	appendTo(*builder)
}

func putMessage[T any, P interface {
	*T
	appender
}](b *builder, num protowire.Number, v P) {
	if v != nil {
		var sub builder
		v.appendTo(&sub)
		b.bytes(num, sub.buf)
	}
}

func putMessages[T any, P interface {
	*T
	appender
}](b *builder, num protowire.Number, vs []T) {
	for i := range vs {
		putMessage[T, P](b, num, &vs[i])
	}
}

// A scanner reads the tagged fields of an encoded message in order.
// Call next to advance to each field; the current field number, wire type
// and raw value are then available to the scan helpers.
type scanner struct {
	rest []byte
	num  protowire.Number
	typ  protowire.Type
	val  []byte // raw value of the current field
	err  error
}

func (s *scanner) next() bool {
	if s.err != nil || len(s.rest) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(s.rest)
	if n < 0 {
		s.err = fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		return false
	}
	m := protowire.ConsumeFieldValue(num, typ, s.rest[n:])
	if m < 0 {
		s.err = fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
		return false
	}
	s.num, s.typ, s.val = num, typ, s.rest[n:n+m]
	s.rest = s.rest[n+m:]
	return true
}

var errWireType = errors.New("wrong wire type")

func (s *scanner) want(typ protowire.Type) error {
	if s.typ != typ {
		return fmt.Errorf("%w %d (want %d)", errWireType, s.typ, typ)
	}
	return nil
}

func (s *scanner) varint() (uint64, error) {
	if err := s.want(protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(s.val)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return v, nil
}

func (s *scanner) bytes() ([]byte, error) {
	if err := s.want(protowire.BytesType); err != nil {
		return nil, err
	}
	v, n := protowire.ConsumeBytes(s.val)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return v, nil
}

// decodeFields calls f for each field of data in order. Fields f does not
// recognize are ignored.
func decodeFields(data []byte, f func(*scanner) error) error {
	s := &scanner{rest: data}
	for s.next() {
		if err := f(s); err != nil {
			return fmt.Errorf("field %d: %w", s.num, err)
		}
	}
	return s.err
}

func scanVarint[T integer](s *scanner, dst **T) error {
	v, err := s.varint()
	if err != nil {
		return err
	}
	t := T(v)
	*dst = &t
	return nil
}

// scanVarints appends one or more values to *dst. Both the unpacked and the
// packed encodings of a repeated scalar are accepted.
func scanVarints[T integer](s *scanner, dst *[]T) error {
	if s.typ == protowire.BytesType {
		data, err := s.bytes()
		if err != nil {
			return err
		}
		for len(data) != 0 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("packed value: %w", protowire.ParseError(n))
			}
			*dst = append(*dst, T(v))
			data = data[n:]
		}
		return nil
	}
	v, err := s.varint()
	if err != nil {
		return err
	}
	*dst = append(*dst, T(v))
	return nil
}

func scanBool(s *scanner, dst **bool) error {
	v, err := s.varint()
	if err != nil {
		return err
	}
	ok := protowire.DecodeBool(v)
	*dst = &ok
	return nil
}

func scanFloat(s *scanner, dst **float32) error {
	if err := s.want(protowire.Fixed32Type); err != nil {
		return err
	}
	v, n := protowire.ConsumeFixed32(s.val)
	if n < 0 {
		return protowire.ParseError(n)
	}
	f := math.Float32frombits(v)
	*dst = &f
	return nil
}

func scanString(s *scanner, dst **string) error {
	v, err := s.bytes()
	if err != nil {
		return err
	}
	str := string(v)
	*dst = &str
	return nil
}

func scanStrings(s *scanner, dst *[]string) error {
	v, err := s.bytes()
	if err != nil {
		return err
	}
	*dst = append(*dst, string(v))
	return nil
}

// scanBytes stores a copy of the field value; the result never aliases the
// input buffer.
func scanBytes(s *scanner, dst *[]byte) error {
	v, err := s.bytes()
	if err != nil {
		return err
	}
	*dst = append([]byte{}, v...)
	return nil
}

func scanBytesList(s *scanner, dst *[][]byte) error {
	v, err := s.bytes()
	if err != nil {
		return err
	}
	*dst = append(*dst, bytes.Clone(v))
	return nil
}

func scanMessage[T any, P interface {
	*T
	encoding.BinaryUnmarshaler
}](s *scanner, dst **T) error {
	v, err := s.bytes()
	if err != nil {
		return err
	}
	p := P(new(T))
	if err := p.UnmarshalBinary(v); err != nil {
		return err
	}
	*dst = (*T)(p)
	return nil
}

func scanMessages[T any, P interface {
	*T
	encoding.BinaryUnmarshaler
}](s *scanner, dst *[]T) error {
	var v *T
	if err := scanMessage[T, P](s, &v); err != nil {
		return err
	}
	*dst = append(*dst, *v)
	return nil
}
