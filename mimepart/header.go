package mimepart

import (
	"fmt"
	"io"
	"regexp"

	"github.com/karastojko/mailio-sub000/codec"
)

// headerNameRe matches the RFC 5322 ftext alphabet used for a header
// field name.
var headerNameRe = regexp.MustCompile(`^[!#$%&'()*+\-./;<=>?@\[\\\]^_` + "`" + `{|}~A-Za-z0-9]+$`)

// splitHeaderLine splits a single logical (already-unfolded) header line
// at the first ':' into a trimmed name and value.
func splitHeaderLine(line []byte) (name, value []byte, ok bool) {
	i := indexByte(line, ':')
	if i < 0 {
		return nil, nil, false
	}
	name = trimSpace(line[:i])
	value = trimSpace(line[i+1:])
	if !headerNameRe.Match(name) {
		return nil, nil, false
	}
	return name, value, true
}

// validValue reports whether value is acceptable as a header value: pure
// ASCII values must be printable-plus-space; anything containing
// non-ASCII bytes is passed through (it is assumed to be UTF-8, a
// declared-charset raw value, or an RFC 2047 encoded word).
func validValue(value []byte) bool {
	ascii := true
	for _, b := range value {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if !ascii {
		return true
	}
	for _, b := range value {
		if b == '\t' || (b >= 0x20 && b < 0x7F) {
			continue
		}
		return false
	}
	return true
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func trimSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && isSP(b[i]) {
		i++
	}
	for j > i && isSP(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isSP(b byte) bool { return b == ' ' || b == '\t' }

// unfoldHeaders coalesces continuation lines (those starting with
// whitespace) into their preceding logical header line.
func unfoldHeaders(lines [][]byte) [][]byte {
	var out [][]byte
	for _, ln := range lines {
		if len(ln) > 0 && isSP(ln[0]) && len(out) > 0 {
			last := out[len(out)-1]
			joined := make([]byte, 0, len(last)+1+len(ln))
			joined = append(joined, last...)
			joined = append(joined, ' ')
			joined = append(joined, trimSpace(ln)...)
			out[len(out)-1] = joined
			continue
		}
		out = append(out, ln)
	}
	return out
}

// EncodeHeaderLine writes "name: value\r\n", folding value at policy
// boundaries the way email/header.go's HeaderEntry.Encode does: prefer
// to break at a space, falling back to a hard split only once the
// mandatory ceiling is reached. Exported for message, which interleaves
// its own envelope headers with a Part's MIME headers.
func EncodeHeaderLine(w io.Writer, name string, value []byte, policy codec.Policy) (int, error) {
	n, err := fmt.Fprintf(w, "%s: ", name)
	if err != nil {
		return n, err
	}
	if len(value) == 0 {
		n2, err := io.WriteString(w, "\r\n")
		return n + n2, err
	}
	const padding = "    "
	spent := len(name) + len(": ")
	limit := int(policy)
	v := value
	first := true
	for {
		if len(v) < limit-spent {
			n2, err := w.Write(v)
			n += n2
			if err != nil {
				return n, err
			}
			break
		}
		i := limit - spent - 1
		for ; i > 0; i-- {
			if v[i] == ' ' {
				break
			}
		}
		if i == 0 {
			if limit == int(codec.Recommended) {
				limit = int(codec.Mandatory)
				continue
			}
			i = int(codec.Mandatory) - spent
		}
		var n2 int
		if first {
			n2, err = w.Write(v[:i])
			first = false
		} else {
			n2, err = fmt.Fprintf(w, "\r\n%s%s", padding, v[:i])
		}
		n += n2
		if err != nil {
			return n, err
		}
		spent = len(padding)
		limit = int(codec.Recommended)
		v = v[i:]
	}
	n2, err := io.WriteString(w, "\r\n")
	return n + n2, err
}
