package layout

import (
	"encoding/binary"
	"fmt"
	"math"

	"slate/internal/types"
)

// EncodeConstant serialises a constant value of a runtime type into the byte
// image the backend lays down for a static. The layout agrees with SizeOf/
// MemberOffset by construction: encoding writes into a zeroed buffer of
// SizeOf(target, t) bytes.
func EncodeConstant(target Target, t types.Type, v types.Value) ([]byte, error) {
	size := SizeOf(target, t)
	buf := make([]byte, size)
	if err := encodeInto(target, t, v, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeInto(target Target, t types.Type, v types.Value, buf []byte) error {
	switch tt := t.(type) {
	case *types.Integer:
		iv, ok := v.(*types.IntegerValue)
		if !ok {
			return fmt.Errorf("expected integer constant for %s", types.Describe(t))
		}
		putLittleEndian(buf, iv.Bits, tt.Size.Bytes())
		return nil
	case *types.Boolean:
		bv, ok := v.(*types.BooleanValue)
		if !ok {
			return fmt.Errorf("expected boolean constant")
		}
		bits := uint64(0)
		if bv.Value {
			bits = 1
		}
		putLittleEndian(buf, bits, target.DefaultIntegerSize.Bytes())
		return nil
	case *types.Float:
		fv, ok := v.(*types.FloatValue)
		if !ok {
			return fmt.Errorf("expected float constant for %s", types.Describe(t))
		}
		switch tt.Size {
		case types.Size32:
			putLittleEndian(buf, uint64(math.Float32bits(float32(fv.Value))), 4)
		case types.Size64:
			putLittleEndian(buf, math.Float64bits(fv.Value), 8)
		default:
			return fmt.Errorf("unsupported float size %d", tt.Size)
		}
		return nil
	case *types.Pointer:
		pv, ok := v.(*types.PointerValue)
		if !ok {
			return fmt.Errorf("expected pointer constant")
		}
		putLittleEndian(buf, pv.Address, target.AddressSize.Bytes())
		return nil
	case *types.ArraySlice:
		av, ok := v.(*types.ArrayValue)
		if !ok {
			return fmt.Errorf("expected array constant")
		}
		word := target.AddressSize.Bytes()
		putLittleEndian(buf[:word], av.Pointer, word)
		putLittleEndian(buf[word:], av.Length, word)
		return nil
	case *types.StaticArray:
		av, ok := v.(*types.StaticArrayValue)
		if !ok {
			return fmt.Errorf("expected static array constant")
		}
		stride := SizeOf(target, tt.Element)
		for i, elem := range av.Elements {
			off := uint64(i) * stride
			if err := encodeInto(target, tt.Element, elem, buf[off:off+stride]); err != nil {
				return err
			}
		}
		return nil
	case *types.Struct:
		sv, ok := v.(*types.StructValue)
		if !ok {
			return fmt.Errorf("expected struct constant for %s", types.Describe(t))
		}
		if tt.IsUnion {
			if len(sv.Members) == 0 || sv.UnionMemberIndex >= len(tt.Members) {
				return fmt.Errorf("malformed union constant for %s", types.Describe(t))
			}
			memberType := tt.Members[sv.UnionMemberIndex].Type
			memberSize := SizeOf(target, memberType)
			return encodeInto(target, memberType, sv.Members[0], buf[:memberSize])
		}
		for i, member := range tt.Members {
			if i >= len(sv.Members) {
				break
			}
			off := MemberOffset(target, tt, i)
			memberSize := SizeOf(target, member.Type)
			if err := encodeInto(target, member.Type, sv.Members[i], buf[off:off+memberSize]); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot serialise a constant of type %s", types.Describe(t))
}

// putLittleEndian writes the low `width` bytes of bits into buf.
func putLittleEndian(buf []byte, bits uint64, width uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], bits)
	copy(buf[:width], scratch[:width])
}
