package importer

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUndecodable is returned when no candidate encoding decodes cleanly.
var ErrUndecodable = errors.New("undecodable text")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

type textEncoding struct {
	name   string
	accept func(data []byte) bool
	enc    encoding.Encoding
}

// textEncodings is tried in order until one decodes cleanly.
var textEncodings = []textEncoding{
	{
		name: "bom",
		accept: func(data []byte) bool {
			return bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE)
		},
		enc: bomAware{},
	},
	{name: "utf-8", accept: utf8.Valid, enc: encoding.Nop},
	{name: "windows-1252", enc: charmap.Windows1252},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// bomAware decodes UTF-16 or UTF-8 according to a leading byte order mark.
type bomAware struct{}

func (bomAware) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: unicode.BOMOverride(unicode.UTF8.NewDecoder())}
}

func (bomAware) NewEncoder() *encoding.Encoder { return unicode.UTF8.NewEncoder() }

// decodeText returns data as UTF-8 along with the name of the encoding used.
func decodeText(data []byte) (string, string, error) {
	for _, te := range textEncodings {
		if te.accept != nil && !te.accept(data) {
			continue
		}
		out, err := te.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(out)
		if !decodedCleanly(text) {
			continue
		}
		return strings.TrimPrefix(text, "\ufeff"), te.name, nil
	}
	return "", "", ErrUndecodable
}

func decodedCleanly(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, utf8.RuneError)
}
