package engine

import "hash/fnv"

// renderFrame synthesizes a full BGRA frame for the current document:
// tightly packed, 4 bytes per pixel, top-left origin. The engine does not
// rasterize page content; the buffer is a deterministic function of the
// document so hosts exercising off-screen delivery get stable pixels.
func renderFrame(url, title string, width, height int) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}

	h := fnv.New32a()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(title))
	seed := h.Sum32()

	b := byte(seed)
	g := byte(seed >> 8)
	r := byte(seed >> 16)

	buf := make([]byte, width*height*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i] = b
		buf[i+1] = g
		buf[i+2] = r
		buf[i+3] = 0xff
	}
	return buf
}
