package extsort

import "encoding/binary"

type intCmp struct{}

func (intCmp) Less(a, b int64) bool { return a < b }
func (intCmp) Min() int64           { return -1 << 62 }
func (intCmp) Max() int64           { return 1<<62 - 1 }

type intCodec struct{}

func (intCodec) Size() int { return 8 }
func (intCodec) Encode(v int64, dst []byte) {
	binary.BigEndian.PutUint64(dst, uint64(v))
}
func (intCodec) Decode(src []byte) int64 {
	return int64(binary.BigEndian.Uint64(src))
}
