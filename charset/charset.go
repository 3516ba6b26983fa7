// Package charset provides CString, a byte buffer tagged with a declared
// charset and a codec hint, used anywhere a MIME header parameter or body
// value may carry non-ASCII content.
package charset

import (
	"fmt"
	"io"
	"log"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Hint names the codec a CString prefers when it needs to be encoded
// into a header (an encoded-word, a percent-escape, or neither).
type Hint string

const (
	HintASCII           Hint = "ascii"
	HintUTF8            Hint = "utf-8"
	HintQuotedPrintable Hint = "quoted-printable"
	HintBase64          Hint = "base64"
	HintPercent         Hint = "percent"
)

// Unknown is the charset tag adopted when two differently-charset-tagged
// CStrings are concatenated.
const Unknown = "unknown"

// ASCII is the charset tag for a buffer made entirely of printable,
// non-control 7-bit bytes.
const ASCII = "ascii"

// UTF8 is the charset tag for UTF-8 encoded text.
const UTF8 = "utf-8"

// CString is a byte buffer with a declared charset and codec hint.
//
// Invariant: Charset == ASCII iff every byte is in [0x01,0x7E] excluding
// CR and LF. Callers that mutate Bytes directly are responsible for
// calling Retag to restore the invariant.
type CString struct {
	Bytes     []byte
	Charset   string
	CodecHint Hint
}

// New builds a CString, inferring the charset tag from the bytes.
func New(b []byte) CString {
	cs := CString{Bytes: b}
	cs.Retag()
	return cs
}

// FromString is a convenience constructor over a Go string.
func FromString(s string) CString {
	return New([]byte(s))
}

// String renders the buffer as a Go string, independent of charset tag.
func (c CString) String() string { return string(c.Bytes) }

// Empty reports whether the buffer has no content.
func (c CString) Empty() bool { return len(c.Bytes) == 0 }

// IsASCII reports whether every byte is in the printable-ASCII-minus-CRLF
// alphabet required by the ASCII charset tag.
func IsASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x01 || c > 0x7E || c == '\r' || c == '\n' {
			return false
		}
	}
	return true
}

// Retag recomputes Charset from Bytes, tagging ASCII when possible.
func (c *CString) Retag() {
	if IsASCII(c.Bytes) {
		c.Charset = ASCII
		if c.CodecHint == "" {
			c.CodecHint = HintASCII
		}
		return
	}
	if c.Charset == "" {
		c.Charset = UTF8
	}
	if c.CodecHint == "" {
		c.CodecHint = HintUTF8
	}
}

// Concat concatenates a onto b, preserving a's charset tag if a and b
// agree, else tagging the result Unknown. This mirrors spec §3's
// concatenation rule for CString.
func Concat(a, b CString) CString {
	out := CString{Bytes: append(append([]byte{}, a.Bytes...), b.Bytes...)}
	switch {
	case a.Empty():
		out.Charset = b.Charset
		out.CodecHint = b.CodecHint
	case b.Empty():
		out.Charset = a.Charset
		out.CodecHint = a.CodecHint
	case a.Charset == b.Charset:
		out.Charset = a.Charset
		out.CodecHint = a.CodecHint
	default:
		out.Charset = Unknown
		out.CodecHint = a.CodecHint
	}
	return out
}

// Lookup resolves a MIME charset token (as found in a Content-Type
// "charset=" parameter or an RFC 2047 encoded-word) to an encoding.Encoding.
//
// Grounded on the charset resolution in the example pack's address
// parser: ianaindex.MIME is tried first, with a hand-picked fallback for
// charsets IANA's table doesn't carry under the name senders actually
// use (gb2312 is the one the pack encountered in practice).
func Lookup(name string) (encoding.Encoding, error) {
	if name == "" || name == ASCII || name == UTF8 || name == "us-ascii" {
		return encoding.Nop, nil
	}
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("charset: unknown charset %q: %v", name, err)
	}
	if enc != nil {
		return enc, nil
	}
	switch name {
	case "gb2312":
		return simplifiedchinese.HZGB2312, nil
	}
	log.Printf("charset: no encoding registered for %q, passing through", name)
	return encoding.Nop, nil
}

// Decode decodes b, declared to be in charset name, into UTF-8.
func Decode(name string, b []byte) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Bytes(b)
}

// Encode encodes UTF-8 text b into charset name.
func Encode(name string, b []byte) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return enc.NewEncoder().Bytes(b)
}

// Reader wraps r, decoding bytes declared to be in charset name into UTF-8
// as they are read.
func Reader(name string, r io.Reader) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(r), nil
}
