// Package compression wraps queue payloads in a one-byte envelope naming
// the algorithm that compressed the body.
package compression

import (
	"fmt"
)

// Algorithm defines compression types. The value is the envelope header byte.
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

// Compressor interface for compression algorithms
type Compressor interface {
	// Compress compresses data
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm type
	Algorithm() Algorithm
}

// GetCompressor returns a compressor for the given algorithm
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return &NoneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// ParseAlgorithm maps a config name to an Algorithm. Empty means none.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// Seal compresses data with algo and prefixes the algorithm byte
func Seal(algo Algorithm, data []byte) ([]byte, error) {
	c, err := GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(algo))
	return append(out, body...), nil
}

// Open reads the envelope header and returns the decompressed body
func Open(envelope []byte) ([]byte, error) {
	if len(envelope) == 0 {
		return nil, fmt.Errorf("empty envelope")
	}
	c, err := GetCompressor(Algorithm(envelope[0]))
	if err != nil {
		return nil, err
	}
	return c.Decompress(envelope[1:])
}

// NoneCompressor is a no-op compressor
type NoneCompressor struct{}

func (n *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (n *NoneCompressor) Algorithm() Algorithm {
	return None
}
