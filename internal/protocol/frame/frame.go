package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	HeaderSize   = 58
	Version      = 1
	TypeString   = "STRING"
	DeviceCmd    = "CMD"
	MaxStringLen = 0xFFFF

	// EncodingUSASCII is the IANA MIBenum stored in every STRING body.
	EncodingUSASCII uint16 = 3

	typeLen   = 12
	deviceLen = 20
	stringHdr = 4
)

var (
	ErrMalformedHeader  = errors.New("frame: malformed header")
	ErrTypeMismatch     = errors.New("frame: message type mismatch")
	ErrBodySizeMismatch = errors.New("frame: body size mismatch")
	ErrChecksumMismatch = errors.New("frame: body checksum mismatch")
	ErrPayloadTooLarge  = errors.New("frame: payload too large")
	ErrFieldTooLong     = errors.New("frame: header field too long")
)

// Header is the fixed wire header that precedes every body.
type Header struct {
	Version    uint16
	Type       string
	DeviceName string
	Timestamp  uint64
	BodySize   uint64
	CRC        uint64
}

// ExpectType returns ErrTypeMismatch unless the header carries the given type tag.
func (h Header) ExpectType(t string) error {
	if h.Type != t {
		return fmt.Errorf("%w: got=%q want=%q", ErrTypeMismatch, h.Type, t)
	}
	return nil
}

// Encode packs payload as a STRING message addressed to deviceName.
func Encode(deviceName, payload string) ([]byte, error) {
	if len(payload) > MaxStringLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	if len(deviceName) > deviceLen {
		return nil, fmt.Errorf("%w: device name %q", ErrFieldTooLong, deviceName)
	}

	body := make([]byte, stringHdr+len(payload))
	binary.BigEndian.PutUint16(body[0:2], EncodingUSASCII)
	binary.BigEndian.PutUint16(body[2:4], uint16(len(payload)))
	copy(body[stringHdr:], payload)

	h := Header{
		Version:    Version,
		Type:       TypeString,
		DeviceName: deviceName,
		Timestamp:  timestamp(time.Now()),
		BodySize:   uint64(len(body)),
		CRC:        Checksum(body),
	}
	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, EncodeHeader(h)...)
	out = append(out, body...)
	return out, nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	copy(buf[2:2+typeLen], h.Type)
	copy(buf[14:14+deviceLen], h.DeviceName)
	binary.BigEndian.PutUint64(buf[34:42], h.Timestamp)
	binary.BigEndian.PutUint64(buf[42:50], h.BodySize)
	binary.BigEndian.PutUint64(buf[50:58], h.CRC)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("%w: length %d", ErrMalformedHeader, len(b))
	}
	version := binary.BigEndian.Uint16(b[0:2])
	if version != Version {
		return Header{}, fmt.Errorf("%w: version %d", ErrMalformedHeader, version)
	}
	typ, ok := cString(b[2 : 2+typeLen])
	if !ok || typ == "" {
		return Header{}, fmt.Errorf("%w: invalid type field", ErrMalformedHeader)
	}
	device, ok := cString(b[14 : 14+deviceLen])
	if !ok {
		return Header{}, fmt.Errorf("%w: invalid device name field", ErrMalformedHeader)
	}
	return Header{
		Version:    version,
		Type:       typ,
		DeviceName: device,
		Timestamp:  binary.BigEndian.Uint64(b[34:42]),
		BodySize:   binary.BigEndian.Uint64(b[42:50]),
		CRC:        binary.BigEndian.Uint64(b[50:58]),
	}, nil
}

// DecodeString unpacks a STRING body read for h. The body must be exactly h.BodySize bytes.
func DecodeString(h Header, body []byte) (string, error) {
	if err := h.ExpectType(TypeString); err != nil {
		return "", err
	}
	if uint64(len(body)) != h.BodySize {
		return "", fmt.Errorf("%w: header=%d body=%d", ErrBodySizeMismatch, h.BodySize, len(body))
	}
	if len(body) < stringHdr {
		return "", fmt.Errorf("%w: body shorter than string header", ErrBodySizeMismatch)
	}
	if sum := Checksum(body); sum != h.CRC {
		return "", fmt.Errorf("%w: header=%#x body=%#x", ErrChecksumMismatch, h.CRC, sum)
	}
	n := int(binary.BigEndian.Uint16(body[2:4]))
	if stringHdr+n != len(body) {
		return "", fmt.Errorf("%w: string length %d in %d byte body", ErrBodySizeMismatch, n, len(body))
	}
	return string(body[stringHdr:]), nil
}

// cString trims NUL padding and rejects non-printable bytes before the padding.
func cString(b []byte) (string, bool) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		for _, c := range b[i:] {
			if c != 0 {
				return "", false
			}
		}
		b = b[:i]
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "", false
		}
	}
	return string(b), true
}

// timestamp packs t as whole seconds in the high word and a 2^-32 fraction in the low word.
func timestamp(t time.Time) uint64 {
	sec := uint64(t.Unix())
	frac := uint64(t.Nanosecond()) << 32 / uint64(time.Second)
	return sec<<32 | frac&0xFFFFFFFF
}
