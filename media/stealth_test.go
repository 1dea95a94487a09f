package media

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bitsOf expands data into one bit per byte, most significant bit first
func bitsOf(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

// stealthBitstream builds signature + 32-bit big-endian bit count + payload
func stealthBitstream(t *testing.T, signature string, payload []byte) []byte {
	t.Helper()
	require.Len(t, signature, 15)

	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(payload)*8))

	stream := make([]byte, 0, 19+len(payload))
	stream = append(stream, []byte(signature)...)
	stream = append(stream, lengthPrefix[:]...)
	stream = append(stream, payload...)
	return bitsOf(stream)
}

// encodeAlphaImage embeds the bitstream into alpha channel LSBs,
// column-major, one bit per pixel
func encodeAlphaImage(t *testing.T, w, h int, signature string, payload []byte) *image.NRGBA {
	t.Helper()
	bits := stealthBitstream(t, signature, payload)
	require.LessOrEqual(t, len(bits), w*h, "image too small for payload")

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFE})
		}
	}
	for i, bit := range bits {
		x, y := i/h, i%h
		c := img.NRGBAAt(x, y)
		c.A = c.A&^1 | bit
		img.SetNRGBA(x, y, c)
	}
	return img
}

// encodeRGBImage embeds the bitstream into r, g, b channel LSBs,
// column-major, three bits per pixel
func encodeRGBImage(t *testing.T, w, h int, signature string, payload []byte) *image.RGBA {
	t.Helper()
	bits := stealthBitstream(t, signature, payload)
	require.LessOrEqual(t, len(bits), w*h*3, "image too small for payload")

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0x80, 0x80, 0x80, 0xFF
		}
	}
	for i, bit := range bits {
		pixel, channel := i/3, i%3
		x, y := pixel/h, pixel%h
		offset := img.PixOffset(x, y) + channel
		img.Pix[offset] = img.Pix[offset]&^1 | bit
	}
	return img
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecodeStealth_NoPayload(t *testing.T) {
	a := assert.New(t)

	t.Run("opaque image without alpha", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 32, 32))
		a.Equal("", DecodeStealth(img))
	})

	t.Run("image with alpha but no signature", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
		for x := 0; x < 32; x++ {
			for y := 0; y < 32; y++ {
				img.SetNRGBA(x, y, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF})
			}
		}
		a.Equal("", DecodeStealth(img))
	})

	t.Run("image too small to hold a signature", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
		a.Equal("", DecodeStealth(img))
	})
}

func TestDecodeStealth_UnknownSignatureAborts(t *testing.T) {
	a := assert.New(t)

	img := encodeAlphaImage(t, 64, 64, "stealth_bogusxx", []byte("whatever"))
	a.Equal("", DecodeStealth(img))
}

func TestDecodeStealth_AlphaRoundTrip(t *testing.T) {
	a := assert.New(t)

	payload := []byte(`{"Software":"NovelAI","Comment":"{\"prompt\":\"a castle\"}"}`)
	img := encodeAlphaImage(t, 64, 64, sigAlphaInfo, payload)

	a.Equal(string(payload), DecodeStealth(img))
}

func TestDecodeStealth_AlphaCompressed(t *testing.T) {
	a := assert.New(t)

	text := `{"Software":"NovelAI","prompt":"rolling hills, sunset"}`
	img := encodeAlphaImage(t, 64, 64, sigAlphaComp, gzipBytes(t, []byte(text)))

	a.Equal(text, DecodeStealth(img))
}

func TestDecodeStealth_RGBRoundTrip(t *testing.T) {
	a := assert.New(t)

	// 40 payload bits leave the bit count at 1 mod 3, forcing the maximum
	// 2-bit channel-triplet overshoot that must be truncated
	payload := []byte("hello")
	img := encodeRGBImage(t, 64, 64, sigRGBInfo, payload)

	a.Equal(string(payload), DecodeStealth(img))
}

func TestDecodeStealth_RGBCompressed(t *testing.T) {
	a := assert.New(t)

	text := `{"Software":"StableDiffusion","prompt":"a red bicycle"}`
	img := encodeRGBImage(t, 64, 64, sigRGBComp, gzipBytes(t, []byte(text)))

	a.Equal(text, DecodeStealth(img))
}

func TestDecodeStealth_RGBOvershootLengths(t *testing.T) {
	a := assert.New(t)

	// cover every alignment of the payload bit count modulo 3
	for _, payload := range [][]byte{
		[]byte("abc"),    // 24 bits, 0 mod 3
		[]byte("abcd"),   // 32 bits, 2 mod 3
		[]byte("abcde"),  // 40 bits, 1 mod 3
		[]byte("abcdef"), // 48 bits, 0 mod 3
	} {
		img := encodeRGBImage(t, 64, 64, sigRGBInfo, payload)
		a.Equal(string(payload), DecodeStealth(img))
	}
}

func TestDecodeStealth_CorruptCompressedPayload(t *testing.T) {
	a := assert.New(t)

	// declared compressed but not actually gzip
	img := encodeAlphaImage(t, 64, 64, sigAlphaComp, []byte("not gzip data"))
	a.Equal("", DecodeStealth(img))
}

func TestDecodeStealth_PayloadLongerThanImage(t *testing.T) {
	a := assert.New(t)

	// length prefix declares more bits than the image holds; the scan
	// exhausts all pixels without completing and recovers nothing
	bits := bitsOf([]byte(sigAlphaInfo))
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], 1<<20)
	bits = append(bits, bitsOf(lengthPrefix[:])...)

	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFE})
		}
	}
	for i, bit := range bits {
		x, y := i/32, i%32
		c := img.NRGBAAt(x, y)
		c.A = c.A&^1 | bit
		img.SetNRGBA(x, y, c)
	}

	a.Equal("", DecodeStealth(img))
}
