package codec

var foldDelims = []byte{' ', ',', ';'}

func bit7Allowed(b byte, strict bool) bool {
	if strict {
		return b >= 0x01 && b <= 0x7E && b != '\r' && b != '\n'
	}
	return b != 0x00 && b != '\r' && b != '\n'
}

func bit8Allowed(b byte) bool {
	return b != 0x00 && b != '\r' && b != '\n'
}

// Bit7 implements the "7bit" content transfer encoding: plain text with
// no per-byte transformation, only line wrapping. In strict mode every
// byte must be 7-bit and printable (outside CR/LF); non-strict mode only
// rejects NUL and bare CR/LF.
type Bit7 struct {
	First  Policy
	Lines  Policy
	Strict bool
}

// Encode validates the alphabet and wraps at policy, preferring to fold
// at the last space/comma/semicolon before the limit when First and
// Lines differ (RFC 5322 folding white space). An embedded "\r\n" pair
// in data is a hard line break: it ends the current line immediately,
// the same as a policy-driven wrap. A lone '\r' or '\n' is invalid.
func (c Bit7) Encode(data []byte) ([][]byte, error) {
	var lines [][]byte
	var line []byte
	lineLen := 0
	delimPos := 0
	isFolding := c.First != c.Lines
	limit := int(c.First)

	addNewLine := func() {
		if isFolding && delimPos > 0 {
			lines = append(lines, append([]byte{}, line[:delimPos]...))
			line = append([]byte{}, line[delimPos:]...)
			lineLen -= delimPos
			delimPos = 0
		} else {
			lines = append(lines, line)
			line = nil
			lineLen = 0
		}
		limit = int(c.Lines)
	}

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case bit7Allowed(b, c.Strict):
			line = append(line, b)
			lineLen++
			if containsByte(foldDelims, b) {
				delimPos = lineLen
			}
		case b == '\r' && i+1 < len(data) && data[i+1] == '\n':
			addNewLine()
			i++
			continue
		default:
			return nil, errf("7bit", "byte %#x not allowed", b)
		}
		if lineLen == limit {
			addNewLine()
		}
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		lines = [][]byte{{}}
	}
	return lines, nil
}

// Decode validates the alphabet of every line and rejects lines longer
// than the decoder's policy, then joins them with CRLF.
func (c Bit7) Decode(lines [][]byte) (string, error) {
	return decodeTextLines("7bit", lines, c.Lines, func(b byte) bool { return bit7Allowed(b, c.Strict) })
}

// Bit8 is identical to Bit7 except any non-NUL, non-CR, non-LF byte is
// allowed (8-bit clean text, not further restricted).
type Bit8 struct {
	First Policy
	Lines Policy
}

// Encode hard-splits at policy (no delimiter preference, unlike Bit7)
// and, like Bit7, treats an embedded "\r\n" as a forced line break.
func (c Bit8) Encode(data []byte) ([][]byte, error) {
	var lines [][]byte
	var line []byte
	lineLen := 0
	isFirst := true

	addNewLine := func() {
		lines = append(lines, line)
		line = nil
		lineLen = 0
	}

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case bit8Allowed(b):
			line = append(line, b)
			lineLen++
		case b == '\r' && i+1 < len(data) && data[i+1] == '\n':
			addNewLine()
			i++
			continue
		default:
			return nil, errf("8bit", "byte %#x not allowed", b)
		}
		if isFirst {
			if lineLen == int(c.First) {
				isFirst = false
				addNewLine()
			}
		} else if lineLen == int(c.Lines) {
			addNewLine()
		}
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		lines = [][]byte{{}}
	}
	return lines, nil
}

func (c Bit8) Decode(lines [][]byte) (string, error) {
	return decodeTextLines("8bit", lines, c.Lines, bit8Allowed)
}

// Binary passes bytes through unchanged; line wrapping is purely
// cosmetic re-lining, not a transformation of content.
type Binary struct {
	First Policy
	Lines Policy
}

func (c Binary) Encode(data []byte) [][]byte {
	return splitFixed(data, c.First, c.Lines, 1)
}

func (c Binary) Decode(lines [][]byte) []byte {
	out := make([]byte, 0, len(lines)*64)
	for i, ln := range lines {
		out = append(out, ln...)
		if i < len(lines)-1 {
			out = append(out, '\r', '\n')
		}
	}
	return out
}

func decodeTextLines(name string, lines [][]byte, policy Policy, allowed func(byte) bool) (string, error) {
	out := make([]byte, 0, len(lines)*64)
	for i, ln := range lines {
		if len(ln) > int(policy) {
			return "", errf(name, "line exceeds policy of %d octets", policy)
		}
		for _, b := range ln {
			if !allowed(b) {
				return "", errf(name, "byte %#x not allowed", b)
			}
		}
		out = append(out, ln...)
		if i < len(lines)-1 {
			out = append(out, '\r', '\n')
		}
	}
	return string(out), nil
}
