package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Default PCM parameters of synthesized speech
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	DefaultBitDepth   = 16

	// HeaderSize is the size of the canonical WAV header in bytes
	HeaderSize = 44
)

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Format describes linear PCM samples
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns 24 kHz mono 16-bit PCM
func DefaultFormat() Format {
	return Format{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
	}
}

// withDefaults fills zero fields from DefaultFormat
func (f Format) withDefaults() Format {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultSampleRate
	}
	if f.Channels <= 0 {
		f.Channels = DefaultChannels
	}
	if f.BitDepth <= 0 {
		f.BitDepth = DefaultBitDepth
	}
	return f
}

// ByteRate returns the number of payload bytes per second
func (f Format) ByteRate() uint32 {
	return uint32(f.SampleRate) * uint32(f.Channels) * uint32(f.BitDepth) / 8
}

// BlockAlign returns the size of one frame across all channels
func (f Format) BlockAlign() uint16 {
	return uint16(f.Channels) * uint16(f.BitDepth) / 8
}

// newHeader derives every size field from the payload length
func newHeader(dataSize int, f Format) WAVHeader {
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + uint32(dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      f.ByteRate(),
		BlockAlign:    f.BlockAlign(),
		BitsPerSample: uint16(f.BitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}
}

// EncodeWAV wraps raw little-endian PCM bytes in a 44-byte WAV header.
// Zero fields of f are taken from DefaultFormat. The payload is copied
// unchanged after the header.
func EncodeWAV(pcm []byte, f Format) []byte {
	f = f.withDefaults()
	header := newHeader(len(pcm), f)

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(pcm)))

	// Writes into a bytes.Buffer of a fixed-size struct cannot fail
	_ = binary.Write(buf, binary.LittleEndian, header)
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV splits a canonical WAV file into its format and raw payload
func DecodeWAV(data []byte) ([]byte, Format, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, Format{}, err
	}

	if header.AudioFormat != 1 {
		return nil, Format{}, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	}

	end := HeaderSize + int(header.Subchunk2Size)
	if end > len(data) {
		return nil, Format{}, fmt.Errorf("WAV data truncated: header declares %d payload bytes, got %d",
			header.Subchunk2Size, len(data)-HeaderSize)
	}

	payload := make([]byte, header.Subchunk2Size)
	copy(payload, data[HeaderSize:end])

	return payload, Format{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
		BitDepth:   int(header.BitsPerSample),
	}, nil
}

func readHeader(data []byte) (WAVHeader, error) {
	var header WAVHeader
	if err := ValidateWAV(data); err != nil {
		return header, err
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("failed to read WAV header: %w", err)
	}
	return header, nil
}

// ValidateWAV validates a WAV file format without decoding the entire audio data
func ValidateWAV(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}

// WAVInfo holds basic information about a WAV file
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// GetWAVInfo extracts metadata from a WAV file
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	header, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	if header.BlockAlign == 0 || header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid WAV header: block_align=%d sample_rate=%d",
			header.BlockAlign, header.SampleRate)
	}

	// Samples per channel
	numSamples := header.Subchunk2Size / uint32(header.BlockAlign)
	duration := float64(numSamples) / float64(header.SampleRate)

	return &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      duration,
		DataSize:      header.Subchunk2Size,
		NumSamples:    numSamples,
	}, nil
}
