package replay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"
)

// The envelope turns a bare event stream into a minimal UBJSON replay file:
// {"raw": [$U#l <len> <bytes>, "metadata": {}}.
var (
	envelopeHeader = []byte{'{', 'U', 3, 'r', 'a', 'w', '[', '$', 'U', '#', 'l'}
	envelopeFooter = []byte{'U', 8, 'm', 'e', 't', 'a', 'd', 'a', 't', 'a', '{', '}', '}'}
)

// EnvelopeOverhead is the number of bytes Wrap adds around the payload.
const EnvelopeOverhead = 11 + 4 + 13

var (
	// ErrPayloadTooLarge is returned when raw replay data does not fit the u32 length prefix.
	ErrPayloadTooLarge = errors.New("replay payload exceeds 4GiB envelope limit")
	// ErrMalformedEnvelope is returned by Unwrap for input that was not produced by Wrap.
	ErrMalformedEnvelope = errors.New("malformed replay envelope")
)

// Wrap frames raw replay bytes with the fixed header, a big-endian length and the footer.
func Wrap(raw []byte) ([]byte, error) {
	if uint64(len(raw)) > math.MaxUint32 {
		return nil, ErrPayloadTooLarge
	}
	out := make([]byte, 0, len(raw)+EnvelopeOverhead)
	out = append(out, envelopeHeader...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(raw)))
	out = append(out, raw...)
	out = append(out, envelopeFooter...)
	return out, nil
}

// Unwrap strips the envelope and returns the raw replay bytes.
func Unwrap(enveloped []byte) ([]byte, error) {
	if len(enveloped) < EnvelopeOverhead {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the envelope", ErrMalformedEnvelope, len(enveloped))
	}
	if !bytes.HasPrefix(enveloped, envelopeHeader) {
		return nil, fmt.Errorf("%w: header mismatch", ErrMalformedEnvelope)
	}
	if !bytes.HasSuffix(enveloped, envelopeFooter) {
		return nil, fmt.Errorf("%w: footer mismatch", ErrMalformedEnvelope)
	}
	body := enveloped[len(envelopeHeader) : len(enveloped)-len(envelopeFooter)]
	size := binary.BigEndian.Uint32(body[:4])
	raw := body[4:]
	if uint64(len(raw)) != uint64(size) {
		return nil, fmt.Errorf("%w: length prefix %d does not match payload %d", ErrMalformedEnvelope, size, len(raw))
	}
	return raw, nil
}

// Compress gzips data at the default compression level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}

// Encode wraps raw replay bytes and gzips the result, producing the upload body.
func Encode(raw []byte) ([]byte, error) {
	wrapped, err := Wrap(raw)
	if err != nil {
		return nil, err
	}
	return Compress(wrapped)
}

// Decode reverses Encode.
func Decode(body []byte) ([]byte, error) {
	wrapped, err := Decompress(body)
	if err != nil {
		return nil, err
	}
	return Unwrap(wrapped)
}
