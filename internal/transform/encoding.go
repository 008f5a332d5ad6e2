package transform

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// EncodingAuto is the sentinel codec name that triggers candidate probing.
const EncodingAuto = "auto"

// EncodingDetectionError means no candidate codec decoded the source file.
type EncodingDetectionError struct {
	Attempted []string
}

func (e *EncodingDetectionError) Error() string {
	return fmt.Sprintf("no candidate encoding decoded the input, attempted: %s", strings.Join(e.Attempted, ", "))
}

// aliases covers codec names common in MD tooling that htmlindex does not
// resolve on its own.
var aliases = map[string]encoding.Encoding{
	"cp932":      japanese.ShiftJIS,
	"ms932":      japanese.ShiftJIS,
	"windows31j": japanese.ShiftJIS,
	"utf-16le":   unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16be":   unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
}

// lookupEncoding resolves a codec by name. UTF-8 is handled by the caller
// since it needs no transformation.
func lookupEncoding(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if enc, ok := aliases[n]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
	return enc, nil
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// decodeWith decodes src with the named codec, failing when the decode is
// lossy. x/text decoders substitute U+FFFD instead of erroring, so a
// replacement rune in the output that the input did not contain marks the
// codec as wrong for this file.
func decodeWith(name string, src []byte) ([]byte, error) {
	if isUTF8Name(name) {
		if !utf8.Valid(src) {
			return nil, fmt.Errorf("input is not valid UTF-8")
		}
		// Strip a BOM if the exporting tool added one.
		return bytes.TrimPrefix(src, []byte{0xEF, 0xBB, 0xBF}), nil
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewDecoder().Bytes(src)
	if err != nil {
		return nil, fmt.Errorf("decode as %s: %w", name, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(src, utf8.RuneError) {
		return nil, fmt.Errorf("decode as %s produced replacement characters", name)
	}
	return out, nil
}

// decodeSource resolves the spec's source encoding and returns UTF-8 bytes.
// With EncodingAuto each candidate is tried in declared order and the first
// clean decode wins.
func decodeSource(spec *MappingSpec, src []byte) ([]byte, string, error) {
	name := spec.SourceEncoding
	if name == "" {
		name = EncodingAuto
	}

	if name != EncodingAuto {
		out, err := decodeWith(name, src)
		if err != nil {
			return nil, "", err
		}
		return out, name, nil
	}

	candidates := spec.encodingCandidates()
	for _, candidate := range candidates {
		out, err := decodeWith(candidate, src)
		if err != nil {
			log.Debug().Str("encoding", candidate).Err(err).Msg("encoding candidate rejected")
			continue
		}
		log.Info().Str("encoding", candidate).Msg("source encoding detected")
		return out, candidate, nil
	}
	return nil, "", &EncodingDetectionError{Attempted: candidates}
}
