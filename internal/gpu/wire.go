//go:build !nogpu

package gpu

import (
	"encoding/binary"

	aks "github.com/myyc/aks-sub001"
)

// The kernel reads storage buffers as arrays of u32, so every host buffer
// is laid out in 4-byte words.

// padWords returns data padded with zeros to a multiple of four bytes.
// The input slice is returned unchanged when it is already aligned.
func padWords(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, (len(data)+3)&^3)
	copy(out, data)
	return out
}

// lutWords widens a 256-entry table to one u32 per entry.
func lutWords(table []byte) []byte {
	out := make([]byte, len(table)*4)
	for i, v := range table {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

// unpackPixels converts packed RGBA words into dst.
// Each word holds R in the low byte and A in the high byte.
func unpackPixels(words []byte, dst []byte) {
	for i := 0; i+3 < len(dst) && i+3 < len(words); i += 4 {
		v := binary.LittleEndian.Uint32(words[i:])
		dst[i] = uint8(v)         //nolint:gosec // masked to 8 bits
		dst[i+1] = uint8(v >> 8)  //nolint:gosec // masked to 8 bits
		dst[i+2] = uint8(v >> 16) //nolint:gosec // masked to 8 bits
		dst[i+3] = uint8(v >> 24) //nolint:gosec // masked to 8 bits
	}
}

// uploads is the host-side data of one dispatch.
type uploads struct {
	params []byte
	input  []byte
	luts   [4][]byte
	output uint64 // output buffer size in bytes
}

// buildUploads lays out src and pack for the kernel.
func buildUploads(src aks.RawPixelData, pack *aks.ParamPack) (uploads, error) {
	params, err := pack.MarshalBinary()
	if err != nil {
		return uploads{}, err
	}
	w, h := pack.OutputSize()
	u := uploads{
		params: params,
		input:  padWords(src.Pix),
		output: uint64(w) * uint64(h) * 4, //nolint:gosec // output dimensions are positive
	}
	for i, t := range pack.LUTBytes() {
		u.luts[i] = lutWords(t)
	}
	return u, nil
}
