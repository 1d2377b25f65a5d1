package contentline

import (
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

func lookupCharset(charset string) (encoding.Encoding, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("contentline: unknown charset %q", charset)
	}
	return enc, nil
}

// DecodeQuotedPrintable decodes a quoted-printable value. The decoded bytes
// are interpreted in the provided charset, UTF-8 if empty. On error, the
// best effort result is returned along with the error.
func DecodeQuotedPrintable(s, charset string) (string, error) {
	b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(s)))
	if err != nil {
		return s, fmt.Errorf("contentline: malformed quoted-printable value: %w", err)
	}

	enc, err := lookupCharset(charset)
	if err != nil {
		return string(b), err
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b), fmt.Errorf("contentline: failed to decode %q value: %w", charset, err)
	}
	return string(decoded), nil
}

const hexDigits = "0123456789ABCDEF"

// EncodeQuotedPrintable encodes a value in quoted-printable, after converting
// it to the provided charset (UTF-8 if empty). No soft line breaks are
// inserted: folding is the writer's job.
func EncodeQuotedPrintable(s, charset string) (string, error) {
	enc, err := lookupCharset(charset)
	if err != nil {
		return "", err
	}
	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return "", fmt.Errorf("contentline: failed to encode value as %q: %w", charset, err)
	}

	var sb strings.Builder
	for i, c := range b {
		switch {
		case c == '=' || c < ' ' && c != '\t' || c > '~':
			sb.WriteByte('=')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0F])
		case (c == ' ' || c == '\t') && i == len(b)-1:
			// trailing whitespace would be stripped
			sb.WriteByte('=')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0x0F])
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}
