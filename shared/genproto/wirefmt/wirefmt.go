// Package wirefmt holds the protobuf wire helpers shared by the hand
// maintained message types under genproto.
package wirefmt

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	xerrors "pulsetrack/shared/utils/errors"
)

// FieldFunc decodes one field from b and returns the bytes it consumed.
// Returning 0 marks the field as unknown so Walk skips it.
type FieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// Walk iterates the fields of a message. Unknown fields are skipped.
func Walk(b []byte, fn FieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodeErr(protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return decodeErr(protowire.ParseError(m))
			}
		}
		b = b[m:]
	}
	return nil
}

// String decodes a length delimited UTF-8 field.
func String(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, decodeErr(fmt.Errorf("want bytes wire type, got %d", typ))
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, decodeErr(protowire.ParseError(n))
	}
	if !utf8.Valid(v) {
		return 0, decodeErr(fmt.Errorf("string field is not valid UTF-8"))
	}
	*dst = string(v)
	return n, nil
}

func Int64(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if typ != protowire.VarintType {
		return 0, decodeErr(fmt.Errorf("want varint wire type, got %d", typ))
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, decodeErr(protowire.ParseError(n))
	}
	*dst = int64(v)
	return n, nil
}

// AppendString skips empty values, as proto3 does.
func AppendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func AppendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func decodeErr(err error) error {
	return fmt.Errorf("%w: %v", xerrors.ErrProtocolDecode, err)
}
