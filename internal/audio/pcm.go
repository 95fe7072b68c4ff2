package audio

import "encoding/binary"

// Samples decodes little-endian signed 16-bit PCM bytes into samples.
// The input length must be even; callers are responsible for carrying
// any unaligned trailing byte into the next chunk.
func Samples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}

// Bytes encodes samples back into little-endian 16-bit PCM.
func Bytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}
