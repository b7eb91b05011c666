package layout

import (
	"slate/internal/types"
)

// SizeOf computes the byte size of a runtime type for the target.
//
// Static arrays are length x size(element); historical layouts used the
// element alignment as the stride, which under-allocates when size and
// alignment differ.
func SizeOf(target Target, t types.Type) uint64 {
	switch tt := t.(type) {
	case *types.Integer:
		return tt.Size.Bytes()
	case *types.Boolean:
		return target.DefaultIntegerSize.Bytes()
	case *types.Float:
		return tt.Size.Bytes()
	case *types.Pointer:
		return target.AddressSize.Bytes()
	case *types.ArraySlice:
		return 2 * target.AddressSize.Bytes()
	case *types.StaticArray:
		return tt.Length * SizeOf(target, tt.Element)
	case *types.Struct:
		if tt.IsUnion {
			max := uint64(0)
			for _, m := range tt.Members {
				if s := SizeOf(target, m.Type); s > max {
					max = s
				}
			}
			return max
		}
		size := uint64(0)
		for _, m := range tt.Members {
			size = alignTo(size, AlignOf(target, m.Type))
			size += SizeOf(target, m.Type)
		}
		return size
	}
	return 0
}

// AlignOf computes the byte alignment of a runtime type for the target.
func AlignOf(target Target, t types.Type) uint64 {
	switch tt := t.(type) {
	case *types.Integer:
		return tt.Size.Bytes()
	case *types.Boolean:
		return target.DefaultIntegerSize.Bytes()
	case *types.Float:
		return tt.Size.Bytes()
	case *types.Pointer, *types.ArraySlice:
		return target.AddressSize.Bytes()
	case *types.StaticArray:
		return AlignOf(target, tt.Element)
	case *types.Struct:
		max := uint64(1)
		for _, m := range tt.Members {
			if a := AlignOf(target, m.Type); a > max {
				max = a
			}
		}
		return max
	}
	return 1
}

// MemberOffset computes the byte offset of member index inside a struct.
// Every member of a union lives at offset zero.
func MemberOffset(target Target, st *types.Struct, index int) uint64 {
	if st.IsUnion {
		return 0
	}
	offset := uint64(0)
	for i := 0; i <= index; i++ {
		offset = alignTo(offset, AlignOf(target, st.Members[i].Type))
		if i == index {
			return offset
		}
		offset += SizeOf(target, st.Members[i].Type)
	}
	return offset
}

func alignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	if rem := offset % align; rem != 0 {
		return offset + align - rem
	}
	return offset
}
