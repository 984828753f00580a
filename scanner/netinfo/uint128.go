package netinfo

import (
	"encoding/binary"
	"math/big"
	"net/netip"

	"github.com/pkg/errors"
)

// uint128 holds IPv4 and IPv6 addresses as integers in one table
type uint128 struct {
	hi, lo uint64
}

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func (u uint128) less(o uint128) bool {
	return u.hi < o.hi || (u.hi == o.hi && u.lo < o.lo)
}

func (u uint128) lessOrEqual(o uint128) bool {
	return !o.less(u)
}

func (u uint128) String() string {
	b := new(big.Int).SetUint64(u.hi)
	b.Lsh(b, 64)
	b.Or(b, new(big.Int).SetUint64(u.lo))
	return b.String()
}

func parseUint128(s string) (uint128, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 || b.Cmp(maxUint128) > 0 {
		return uint128{}, errors.Errorf("invalid integer %q", s)
	}
	var buf [16]byte
	b.FillBytes(buf[:])
	return uint128{hi: binary.BigEndian.Uint64(buf[:8]), lo: binary.BigEndian.Uint64(buf[8:])}, nil
}

// addrToUint128 maps IPv4 into the low 32 bits, IPv6 uses all 128
func addrToUint128(addr netip.Addr) uint128 {
	if addr.Is4() {
		b := addr.As4()
		return uint128{lo: uint64(binary.BigEndian.Uint32(b[:]))}
	}
	b := addr.As16()
	return uint128{hi: binary.BigEndian.Uint64(b[:8]), lo: binary.BigEndian.Uint64(b[8:])}
}
