package decode

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// toUTF8 detects the text encoding of data and returns it as UTF-8 along with
// the name of the encoding that was found. Byte order marks are removed.
//
// Files without a BOM that are not valid UTF-8 are read as Windows-1252, which
// is what spreadsheet tools on Windows write by default.
func toUTF8(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := transcode(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))
		return out, "utf-16le", err
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := transcode(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))
		return out, "utf-16be", err
	case utf8.Valid(data):
		return data, "utf-8", nil
	default:
		out, err := transcode(data, charmap.Windows1252)
		return out, "windows-1252", err
	}
}

func transcode(data []byte, enc encoding.Encoding) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	return out, nil
}
