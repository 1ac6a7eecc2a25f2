package badgerlog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/edb/internal/record"
)

// encoding marks how a stored commit payload is encoded.
type encoding byte

const (
	encodingPlain encoding = 0x00
	encodingZstd  encoding = 0x01
)

// compressionThreshold is the minimum payload size worth compressing.
const compressionThreshold = 512

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
}

// encodeCommit serializes a commit.
// Format: [1 byte encoding][4 bytes original size][payload]
func encodeCommit(c *record.Commit) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode commit: %w", err)
	}

	if len(data) >= compressionThreshold {
		compressed := encoder.EncodeAll(data, nil)
		if len(compressed) < len(data) {
			return frame(encodingZstd, compressed, len(data)), nil
		}
	}
	return frame(encodingPlain, data, len(data)), nil
}

func frame(enc encoding, payload []byte, originalSize int) []byte {
	out := make([]byte, 5+len(payload))
	out[0] = byte(enc)
	binary.BigEndian.PutUint32(out[1:5], uint32(originalSize))
	copy(out[5:], payload)
	return out
}

// decodeCommit reverses encodeCommit.
func decodeCommit(data []byte) (*record.Commit, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("decode commit: %w: payload too short (%d bytes)", ErrCorrupted, len(data))
	}

	enc := encoding(data[0])
	originalSize := binary.BigEndian.Uint32(data[1:5])
	payload := data[5:]

	var raw []byte
	switch enc {
	case encodingPlain:
		raw = payload
	case encodingZstd:
		var err error
		raw, err = decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decode commit: zstd: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode commit: %w: unknown encoding %d", ErrCorrupted, enc)
	}
	if uint32(len(raw)) != originalSize {
		return nil, fmt.Errorf("decode commit: %w: size %d, expected %d", ErrCorrupted, len(raw), originalSize)
	}

	var c record.Commit
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode commit: %w", err)
	}
	return &c, nil
}
