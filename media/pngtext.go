package media

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Go's image/png discards ancillary chunks, so the extractor walks the PNG
// container itself to collect the textual metadata (tEXt, zTXt, iTXt)
// platforms like NovelAI and Stable Diffusion write.

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// maxTextChunkSize bounds how much of a single text chunk is read into
// memory; larger chunks are skipped
const maxTextChunkSize = 1 << 24

// ReadTextChunks returns the keyword -> text pairs of all PNG text chunks
// in r. Malformed or oversized individual chunks are skipped; only a
// missing or invalid PNG signature is an error.
func ReadTextChunks(r io.Reader) (map[string]string, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, fmt.Errorf("failed to read PNG signature: %w", err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("not a PNG file")
	}

	info := make(map[string]string)
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			// truncated after the last complete chunk; keep what we have
			return info, nil
		}
		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])

		if chunkType == "IEND" {
			return info, nil
		}

		isText := chunkType == "tEXt" || chunkType == "zTXt" || chunkType == "iTXt"
		if !isText || length > maxTextChunkSize {
			// skip chunk data plus CRC
			if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
				return info, nil
			}
			continue
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return info, nil
		}
		// CRC is not verified; a corrupt text chunk is treated as absent
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return info, nil
		}

		keyword, text, err := parseTextChunk(chunkType, data)
		if err != nil {
			continue
		}
		info[keyword] = text
	}
}

func parseTextChunk(chunkType string, data []byte) (string, string, error) {
	sep := bytes.IndexByte(data, 0)
	if sep < 0 {
		return "", "", errors.New("missing keyword separator")
	}
	keyword := decodeLatin1(data[:sep])
	rest := data[sep+1:]

	switch chunkType {
	case "tEXt":
		return keyword, decodeLatin1(rest), nil

	case "zTXt":
		if len(rest) < 1 || rest[0] != 0 {
			return "", "", errors.New("unsupported zTXt compression method")
		}
		text, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		return keyword, decodeLatin1(text), nil

	case "iTXt":
		if len(rest) < 2 {
			return "", "", errors.New("truncated iTXt chunk")
		}
		compressionFlag := rest[0]
		compressionMethod := rest[1]
		rest = rest[2:]
		// skip language tag and translated keyword
		for i := 0; i < 2; i++ {
			end := bytes.IndexByte(rest, 0)
			if end < 0 {
				return "", "", errors.New("truncated iTXt chunk")
			}
			rest = rest[end+1:]
		}
		if compressionFlag == 0 {
			return keyword, string(rest), nil
		}
		if compressionMethod != 0 {
			return "", "", errors.New("unsupported iTXt compression method")
		}
		text, err := inflate(rest)
		if err != nil {
			return "", "", err
		}
		return keyword, string(text), nil
	}
	return "", "", fmt.Errorf("not a text chunk: %s", chunkType)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxTextChunkSize))
}

func decodeLatin1(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}
