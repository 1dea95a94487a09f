package media

import (
	"bytes"
	"compress/gzip"
	"image"
	"image/color"
	"io"
	"strings"
	"unicode/utf8"
)

// Stealth payloads hide generation metadata in the least-significant bits
// of pixel channels, scanned column-major (x outer, y inner). Two layouts
// exist: one bit per pixel from the alpha channel, or three bits per pixel
// from the red, green and blue channels in that order. Each starts with a
// 15-byte ASCII signature, then a big-endian length prefix counting payload
// bits, then the payload itself.
const (
	sigAlphaInfo = "stealth_pnginfo"
	sigAlphaComp = "stealth_pngcomp"
	sigRGBInfo   = "stealth_rgbinfo"
	sigRGBComp   = "stealth_rgbcomp"
)

const (
	signatureBits = len(sigAlphaInfo) * 8

	alphaLengthBits = 32
	// the RGB length window is 33 bits because 32 is not a multiple of 3;
	// the 33rd bit is excluded from the length value and carried forward as
	// the first payload bit
	rgbLengthBits = 33

	// a signature must be confirmed within this many pixel positions
	signatureSearchBound = 120
)

type stealthState int

const (
	stateConfirmingSignature stealthState = iota
	stateReadingParamLength
	stateReadingParam
)

type stealthLayout int

const (
	layoutNone stealthLayout = iota
	layoutAlpha
	layoutRGB
)

// bitBuffer accumulates single bits and packs them into bytes in big-endian
// bit order. A trailing chunk shorter than 8 bits packs right-aligned.
type bitBuffer struct {
	bits []byte
}

func (b *bitBuffer) push(bit byte) {
	b.bits = append(b.bits, bit)
}

func (b *bitBuffer) len() int {
	return len(b.bits)
}

func (b *bitBuffer) reset() {
	b.bits = b.bits[:0]
}

// uintValue interprets the first n bits as an unsigned big-endian integer
func (b *bitBuffer) uintValue(n int) int {
	v := 0
	for _, bit := range b.bits[:n] {
		v = v<<1 | int(bit)
	}
	return v
}

func packBits(bits []byte) []byte {
	out := make([]byte, 0, (len(bits)+7)/8)
	for i := 0; i < len(bits); i += 8 {
		end := i + 8
		if end > len(bits) {
			end = len(bits)
		}
		var v byte
		for _, bit := range bits[i:end] {
			v = v<<1 | bit
		}
		out = append(out, v)
	}
	return out
}

// DecodeStealth recovers a hidden payload embedded in the pixel channel
// LSBs of img. It returns the decoded text, or "" when no payload is
// present or recoverable; it never fails.
func DecodeStealth(img image.Image) string {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	at, hasAlpha := samplerFor(img)

	// Both layouts accumulate as candidates until one of them fills its
	// signature window. The RGB window fills first (3 bits per pixel); a
	// mismatch there only eliminates the RGB candidate, since the alpha
	// window is still pending. An alpha-window mismatch is final.
	state := stateConfirmingSignature
	layout := layoutNone
	compressed := false
	paramLen := 0
	var bufA, bufRGB bitBuffer
	var payload []byte
	done := false

	for x := 0; x < width && !done; x++ {
		for y := 0; y < height; y++ {
			r, g, b, a := at(bounds.Min.X+x, bounds.Min.Y+y)
			if hasAlpha {
				bufA.push(a & 1)
			}
			bufRGB.push(r & 1)
			bufRGB.push(g & 1)
			bufRGB.push(b & 1)

			switch state {
			case stateConfirmingSignature:
				if x*height+y > signatureSearchBound {
					return ""
				}
				if bufA.len() == signatureBits {
					switch sig := string(packBits(bufA.bits)); sig {
					case sigAlphaInfo, sigAlphaComp:
						layout = layoutAlpha
						compressed = sig == sigAlphaComp
						state = stateReadingParamLength
						bufA.reset()
					default:
						return ""
					}
				} else if bufRGB.len() == signatureBits {
					switch sig := string(packBits(bufRGB.bits)); sig {
					case sigRGBInfo, sigRGBComp:
						layout = layoutRGB
						compressed = sig == sigRGBComp
						state = stateReadingParamLength
						bufRGB.reset()
					}
				}
			case stateReadingParamLength:
				if layout == layoutAlpha {
					if bufA.len() == alphaLengthBits {
						paramLen = bufA.uintValue(alphaLengthBits)
						bufA.reset()
						state = stateReadingParam
					}
				} else {
					if bufRGB.len() == rgbLengthBits {
						carry := bufRGB.bits[rgbLengthBits-1]
						paramLen = bufRGB.uintValue(rgbLengthBits - 1)
						bufRGB.bits = append(bufRGB.bits[:0], carry)
						state = stateReadingParam
					}
				}
			case stateReadingParam:
				if layout == layoutAlpha {
					// the alpha buffer grows one bit per pixel, so exact
					// equality is always reachable
					if bufA.len() == paramLen {
						payload = packBits(bufA.bits)
						done = true
					}
				} else {
					// channel triplets can overshoot by up to 2 bits;
					// truncate to the declared length
					if bufRGB.len() >= paramLen {
						payload = packBits(bufRGB.bits[:paramLen])
						done = true
					}
				}
			}
			if done {
				break
			}
		}
	}

	if len(payload) == 0 {
		return ""
	}

	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return ""
		}
		data, err := io.ReadAll(zr)
		if err != nil || !utf8.Valid(data) {
			return ""
		}
		return string(data)
	}
	return strings.ToValidUTF8(string(payload), "")
}

// samplerFor returns a per-pixel channel reader and whether the image
// carries a usable alpha channel. PNG decoding yields *image.NRGBA for
// truecolor-with-alpha and *image.RGBA for opaque truecolor; anything else
// is read through color conversion and treated as alpha-less, since an
// image without a real alpha plane cannot hold an alpha-layout payload.
func samplerFor(img image.Image) (func(x, y int) (r, g, b, a uint8), bool) {
	switch src := img.(type) {
	case *image.NRGBA:
		return func(x, y int) (uint8, uint8, uint8, uint8) {
			i := src.PixOffset(x, y)
			return src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]
		}, true
	case *image.RGBA:
		return func(x, y int) (uint8, uint8, uint8, uint8) {
			i := src.PixOffset(x, y)
			return src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]
		}, false
	default:
		return func(x, y int) (uint8, uint8, uint8, uint8) {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			return c.R, c.G, c.B, c.A
		}, false
	}
}
