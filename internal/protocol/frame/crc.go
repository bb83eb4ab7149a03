package frame

// crcPoly is the ECMA-182 polynomial in its non-reflected form. hash/crc64 only
// ships reflected tables with inverted init/xorout, which disagree with the
// checksum the command server computes.
const crcPoly uint64 = 0x42F0E1EBA9EA3693

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint64 {
	var t [256]uint64
	for i := range t {
		c := uint64(i) << 56
		for range 8 {
			if c&(1<<63) != 0 {
				c = c<<1 ^ crcPoly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}

// Checksum returns the body CRC carried in the header.
func Checksum(b []byte) uint64 {
	var crc uint64
	for _, c := range b {
		crc = crcTable[byte(crc>>56)^c] ^ crc<<8
	}
	return crc
}
