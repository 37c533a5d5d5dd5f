package audio

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// WAV wraps raw mono samples in a WAVE container so telephony providers can
// fetch and play them.
func WAV(samples []byte, info EncodingInfo) ([]byte, error) {
	if info.IsZero() {
		return nil, fmt.Errorf("encoding info missing")
	}
	tag := info.Format.waveFormatTag()
	if tag == 0 {
		return nil, fmt.Errorf("unsupported encoding %q", info.Format.Name())
	}

	const channels = 1
	bytesPerSample := info.Format.ByteSize()
	dataLen := len(samples)

	header := make([]byte, wavHeaderSize, wavHeaderSize+dataLen)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(wavHeaderSize-8+dataLen))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], tag)
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(info.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(info.SampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bytesPerSample*8))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, samples...), nil
}
