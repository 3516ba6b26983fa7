package mimepart

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

// rawAttr is one ";attr=value" segment as parsed off a Content-Type or
// Content-Disposition value, before RFC 2231 continuation merging.
type rawAttr struct {
	name  string // lowercase, including any *N or * suffix
	value []byte // unescaped token/quoted-string content
}

// parseValueHeader implements the grammar:
//
//	token-slash-token? *( ";" attr "=" ( token | quoted-string ) )
//
// following the state machine BEGIN -> VALUE -> ATTR_BEGIN -> ATTR_NAME
// -> ATTR_SEP -> (QVALUE|VALUE_TOKEN) -> ATTR_END -> ATTR_BEGIN|END.
// slash, when true, requires "type/subtype" before the parameter list
// (Content-Type); when false, only a single leading token is expected
// (Content-Disposition).
func parseValueHeader(value []byte, slash bool, strict bool) (first, second string, attrs []rawAttr, err error) {
	s := string(value)
	i := 0
	skipSpace := func() {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
	}
	readToken := func() (string, error) {
		start := i
		for i < len(s) && isTokenChar(s[i]) {
			i++
		}
		if i == start {
			return "", fmt.Errorf("mimepart: expected token at %q", s[start:])
		}
		return s[start:i], nil
	}

	// BEGIN -> VALUE
	skipSpace()
	first, err = readToken()
	if err != nil {
		return "", "", nil, err
	}
	if slash {
		skipSpace()
		if i >= len(s) || s[i] != '/' {
			return "", "", nil, fmt.Errorf("mimepart: expected '/' in %q", s)
		}
		i++
		skipSpace()
		second, err = readToken()
		if err != nil {
			return "", "", nil, err
		}
	}

	// ATTR_BEGIN -> ATTR_NAME -> ATTR_SEP -> (QVALUE|VALUE_TOKEN) -> ATTR_END
	for {
		skipSpace()
		if i >= len(s) {
			break
		}
		if s[i] != ';' {
			return "", "", nil, fmt.Errorf("mimepart: expected ';' at %q", s[i:])
		}
		i++
		skipSpace()
		if i >= len(s) {
			break // trailing ';' with nothing after it
		}
		nameStart := i
		for i < len(s) && isAttrNameChar(s[i]) {
			i++
		}
		if i == nameStart {
			return "", "", nil, fmt.Errorf("mimepart: expected attribute name at %q", s[i:])
		}
		name := strings.ToLower(s[nameStart:i])
		skipSpace()
		if i >= len(s) || s[i] != '=' {
			return "", "", nil, fmt.Errorf("mimepart: expected '=' after %q", name)
		}
		i++
		skipSpace()
		var val string
		if i < len(s) && s[i] == '"' {
			val, err = readQuoted(s, &i, strict)
		} else {
			val, err = readToken()
		}
		if err != nil {
			return "", "", nil, err
		}
		attrs = append(attrs, rawAttr{name: name, value: []byte(val)})
	}
	return first, second, attrs, nil
}

func isTokenChar(c byte) bool {
	if c <= 0x20 || c >= 0x7F {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=':
		return false
	}
	return true
}

func isAttrNameChar(c byte) bool { return isTokenChar(c) }

func readQuoted(s string, i *int, strict bool) (string, error) {
	*i++ // opening quote
	var b strings.Builder
	for *i < len(s) {
		c := s[*i]
		switch {
		case c == '"':
			*i++
			return b.String(), nil
		case c == '\\' && *i+1 < len(s):
			b.WriteByte(s[*i+1])
			*i += 2
		case strict && c == '\\':
			return "", fmt.Errorf("mimepart: dangling escape in quoted-string")
		default:
			b.WriteByte(c)
			*i++
		}
	}
	return "", fmt.Errorf("mimepart: unterminated quoted-string")
}

// mergeRFC2231 groups raw attrs by base name, concatenates N-indexed
// continuations in order, and percent-decodes any segment that used the
// extended ("*") form, adopting the charset declared on its first
// segment. Segments that never used the extended form are passed
// through check_decode to resolve embedded RFC 2047 words.
func mergeRFC2231(attrs []rawAttr) (Params, error) {
	type segment struct {
		seq      int
		hasSeq   bool
		extended bool
		value    []byte
	}
	order := []string{}
	groups := map[string][]segment{}
	for _, a := range attrs {
		base, seq, hasSeq, extended := splitAttrName(a.name)
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], segment{seq: seq, hasSeq: hasSeq, extended: extended, value: a.value})
	}

	var out Params
	for _, base := range order {
		segs := groups[base]
		sort.Slice(segs, func(i, j int) bool { return segs[i].seq < segs[j].seq })
		anyExtended := false
		for _, sg := range segs {
			if sg.extended {
				anyExtended = true
			}
		}
		if !anyExtended {
			var buf []byte
			for _, sg := range segs {
				buf = append(buf, sg.value...)
			}
			decoded, err := codec.CheckDecode(buf)
			if err != nil {
				return nil, err
			}
			out = append(out, Param{Name: base, Value: charset.New(decoded)})
			continue
		}
		var cs string
		var payload []byte
		for idx, sg := range segs {
			v := sg.value
			if idx == 0 {
				parts := splitN(v, '\'', 3)
				if len(parts) == 3 {
					cs = string(parts[0])
					v = parts[2]
				}
			}
			payload = append(payload, v...)
		}
		decoded, err := codec.Percent{}.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("mimepart: attribute %q: %w", base, err)
		}
		out = append(out, Param{Name: base, Value: charset.CString{Bytes: decoded, Charset: cs}})
	}
	return out, nil
}

func splitAttrName(name string) (base string, seq int, hasSeq bool, extended bool) {
	if strings.HasSuffix(name, "*") {
		extended = true
		name = name[:len(name)-1]
	}
	if star := strings.LastIndexByte(name, '*'); star >= 0 {
		if n, err := strconv.Atoi(name[star+1:]); err == nil {
			seq = n
			hasSeq = true
			name = name[:star]
		}
	}
	return name, seq, hasSeq, extended
}

func splitN(b []byte, sep byte, n int) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i < len(b) && len(out) < n-1; i++ {
		if b[i] == sep {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	out = append(out, b[start:])
	return out
}

// ParseContentType parses a Content-Type header value into a
// ContentType plus any "boundary" and "name" attributes pulled out for
// the caller (the Part model keeps those as dedicated fields).
func ParseContentType(value []byte, strict bool) (ct ContentType, boundary string, name charset.CString, err error) {
	top, subtype, rawAttrs, err := parseValueHeader(value, true, strict)
	if err != nil {
		return ContentType{}, "", charset.CString{}, err
	}
	params, err := mergeRFC2231(rawAttrs)
	if err != nil {
		return ContentType{}, "", charset.CString{}, err
	}
	ct.Top = Top(strings.ToLower(top))
	ct.Subtype = strings.ToLower(subtype)
	var other Params
	for _, p := range params {
		switch p.Name {
		case "charset":
			ct.Charset = strings.ToLower(p.Value.String())
		case "boundary":
			boundary = p.Value.String()
		case "name":
			name = p.Value
		default:
			other = append(other, p)
		}
	}
	ct.OtherParams = other
	return ct, boundary, name, nil
}

// ParseDisposition parses a Content-Disposition header value.
// An unrecognized disposition type defaults to "attachment" in
// non-strict mode.
func ParseDisposition(value []byte, strict bool) (Disposition, charset.CString, error) {
	first, _, rawAttrs, err := parseValueHeader(value, false, strict)
	if err != nil {
		return DispositionNone, charset.CString{}, err
	}
	params, err := mergeRFC2231(rawAttrs)
	if err != nil {
		return DispositionNone, charset.CString{}, err
	}
	var filename charset.CString
	for _, p := range params {
		if p.Name == "filename" {
			filename = p.Value
		}
	}
	switch strings.ToLower(first) {
	case "inline":
		return DispositionInline, filename, nil
	case "attachment":
		return DispositionAttachment, filename, nil
	default:
		if strict {
			return DispositionNone, charset.CString{}, fmt.Errorf("mimepart: unknown disposition %q", first)
		}
		return DispositionAttachment, filename, nil
	}
}

var knownEncodings = map[string]Encoding{
	"7bit":             Encoding7Bit,
	"8bit":             Encoding8Bit,
	"binary":           EncodingBinary,
	"base64":           EncodingBase64,
	"quoted-printable": EncodingQuotedPrintable,
}

// ParseEncoding matches a Content-Transfer-Encoding value
// case-insensitively against the six known tokens; an unrecognized
// token defaults to 7bit in non-strict mode.
func ParseEncoding(value []byte, strict bool) (Encoding, error) {
	v := strings.ToLower(strings.TrimSpace(string(value)))
	if v == "" {
		return EncodingNone, nil
	}
	if enc, ok := knownEncodings[v]; ok {
		return enc, nil
	}
	if strict {
		return "", fmt.Errorf("mimepart: unknown transfer encoding %q", value)
	}
	return Encoding7Bit, nil
}
