package cache

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/chantlab/neuma/core/align"
)

// AlignmentKey derives a stable cache key for an alignment request. The text,
// the melody, and the option flags are separated in the hash input so adjacent
// fields cannot run together.
func AlignmentKey(text, volpiano string, opts align.Options) string {
	buf := make([]byte, 0, len(text)+len(volpiano)+4)
	buf = append(buf, text...)
	buf = append(buf, 0)
	buf = append(buf, volpiano...)
	buf = append(buf, 0, flagByte(opts.Clean), flagByte(opts.Presyllabified))

	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func flagByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
