package layout

import (
	"fmt"

	"slate/internal/types"
)

// Target carries the two architectural constants the whole core is
// parameterised by: the address integer size and the default integer size.
// They decide pointer width, slice layout, boolean storage width, and the
// concrete type undetermined integers collapse to.
type Target struct {
	AddressSize        types.RegisterSize
	DefaultIntegerSize types.RegisterSize
}

// X86_64 is the usual 64/64 target.
func X86_64() Target {
	return Target{AddressSize: types.Size64, DefaultIntegerSize: types.Size64}
}

// ValidSize reports whether bits is a representable register size.
func ValidSize(bits int) bool {
	switch bits {
	case 8, 16, 32, 64:
		return true
	}
	return false
}

// TargetFromBits builds a Target from bit counts, validating both.
func TargetFromBits(addressBits, defaultIntBits int) (Target, error) {
	if !ValidSize(addressBits) {
		return Target{}, fmt.Errorf("invalid address size %d", addressBits)
	}
	if !ValidSize(defaultIntBits) {
		return Target{}, fmt.Errorf("invalid default integer size %d", defaultIntBits)
	}
	return Target{
		AddressSize:        types.RegisterSize(addressBits),
		DefaultIntegerSize: types.RegisterSize(defaultIntBits),
	}, nil
}

// Usize returns the unsigned address-sized integer type.
func (t Target) Usize() *types.Integer {
	return &types.Integer{Size: t.AddressSize, Signed: false}
}

// Isize returns the signed address-sized integer type.
func (t Target) Isize() *types.Integer {
	return &types.Integer{Size: t.AddressSize, Signed: true}
}

// DefaultInteger returns the type undetermined integers default to.
func (t Target) DefaultInteger() *types.Integer {
	return &types.Integer{Size: t.DefaultIntegerSize, Signed: true}
}

// DefaultFloat returns the type undetermined floats default to. Floats have
// no 8/16-bit forms, so narrow default sizes clamp to 32 bits.
func (t Target) DefaultFloat() *types.Float {
	size := t.DefaultIntegerSize
	if size < types.Size32 {
		size = types.Size32
	}
	return &types.Float{Size: size}
}
