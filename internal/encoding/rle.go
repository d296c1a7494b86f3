// Package encoding holds the wire codec for chunk tile data: run-length
// pairs, varint-packed, base64 for JSON transport.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE packs tile kind ids as base64(varint pairs). The pairs are
// (kind_id, run_len) repeated. Chunk rows are long runs of one floor
// kind, so this beats raw ids by an order of magnitude.
func EncodeRLE(kinds []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(kinds) {
		k := kinds[i]
		run := 1
		for j := i + 1; j < len(kinds) && kinds[j] == k && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(k))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func DecodeRLE(b64 string) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		k, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if k > 0xFFFF {
			return nil, fmt.Errorf("kind id too large: %d", k)
		}
		for j := 0; j < int(run); j++ {
			out = append(out, uint16(k))
		}
	}
	return out, nil
}
