package codec

import (
	"regexp"

	"github.com/karastojko/mailio-sub000/charset"
)

// Method selects which codec a Q-codec encoded word delegates to.
type Method int

const (
	MethodBase64 Method = iota
	MethodQuotedPrintable
)

func (m Method) letter() byte {
	if m == MethodBase64 {
		return 'B'
	}
	return 'Q'
}

// QCodec implements the RFC 2047 "encoded word" used to carry non-ASCII
// text in header fields: =?charset?B|Q?payload?=.
type QCodec struct {
	First  Policy
	Lines  Policy
	Method Method
}

// delimiterOverhead is the length of "=?" + "?" + "M" + "?" + "?=" around
// a charset name and payload: 7 fixed characters plus the charset name.
const delimiterOverhead = 7

// Encode wraps cs into one or more encoded words whose total length
// (delimiters included) fits the configured line policy.
func (c QCodec) Encode(cs charset.CString) [][]byte {
	overhead := delimiterOverhead + len(cs.Charset)
	var payloadLines [][]byte
	switch c.Method {
	case MethodBase64:
		payloadLines = Base64{First: c.First, Lines: c.Lines, Reserved: overhead}.Encode(cs.Bytes)
	default:
		// QMode payloads (charset display names) never contain raw
		// CRLF, so the hard-break error path is unreachable here.
		payloadLines, _ = QuotedPrintable{First: c.First, Lines: c.Lines, Reserved: overhead, QMode: true}.Encode(cs.Bytes)
	}
	words := make([][]byte, 0, len(payloadLines))
	for _, p := range payloadLines {
		word := make([]byte, 0, len(p)+overhead)
		word = append(word, '=', '?')
		word = append(word, cs.Charset...)
		word = append(word, '?', c.Method.letter(), '?')
		word = append(word, p...)
		word = append(word, '?', '=')
		words = append(words, word)
	}
	if len(words) == 0 {
		words = append(words, []byte("=?"+cs.Charset+"?"+string(c.Method.letter())+"??="))
	}
	return words
}

var encodedWordRe = regexp.MustCompile(`=\?([^?]+)\?([BbQq])\?([^?]*)\?=`)

// Decode parses a single RFC 2047 encoded word and returns its decoded
// bytes, declared charset, and codec method.
func (c QCodec) Decode(word []byte) ([]byte, string, Method, error) {
	m := encodedWordRe.FindSubmatch(word)
	if m == nil || len(m[0]) != len(word) {
		return nil, "", 0, errf("q-codec", "malformed encoded word %q", word)
	}
	cs := string(m[1])
	var method Method
	var decoded []byte
	var err error
	switch m[2][0] {
	case 'B', 'b':
		method = MethodBase64
		decoded, err = Base64{}.Decode([][]byte{m[3]})
	case 'Q', 'q':
		method = MethodQuotedPrintable
		decoded, err = QuotedPrintable{QMode: true}.Decode([][]byte{m[3]})
	default:
		return nil, "", 0, errf("q-codec", "bad encoding method %q", m[2])
	}
	if err != nil {
		return nil, "", 0, wrapf("q-codec", err, "decoding payload")
	}
	return decoded, cs, method, nil
}

// CheckDecode scans header for zero or more encoded words interleaved
// with literal text, decoding and concatenating. Per RFC 2047 §6.2,
// whitespace strictly between two adjacent encoded-words is discarded;
// whitespace between an encoded-word and literal text is preserved.
func CheckDecode(header []byte) ([]byte, error) {
	matches := encodedWordRe.FindAllSubmatchIndex(header, -1)
	if matches == nil {
		return append([]byte{}, header...), nil
	}
	out := make([]byte, 0, len(header))
	pos := 0
	prevWasWord := false
	for _, m := range matches {
		start, end := m[0], m[1]
		between := header[pos:start]
		if prevWasWord && isAllWhitespace(between) {
			// discard
		} else {
			out = append(out, between...)
		}
		word := header[start:end]
		q := QCodec{}
		decoded, cs, _, err := q.Decode(word)
		if err != nil {
			out = append(out, word...)
		} else if transcoded, terr := charset.Decode(cs, decoded); terr == nil {
			out = append(out, transcoded...)
		} else {
			out = append(out, decoded...)
		}
		pos = end
		prevWasWord = true
	}
	out = append(out, header[pos:]...)
	return out, nil
}

func isAllWhitespace(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return false
		}
	}
	return true
}
