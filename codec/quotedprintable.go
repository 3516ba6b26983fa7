package codec

func qpAllowed(b byte) bool {
	return b >= 0x21 && b <= 0x7E && b != '='
}

// QuotedPrintable implements RFC 2045 §6.7, plus the RFC 2047 "Q-codec
// mode" variant used inside encoded words (QMode true): additionally
// escapes '_', '?' and space (as '_'), and never soft-breaks.
type QuotedPrintable struct {
	First    Policy
	Lines    Policy
	Reserved int
	QMode    bool
}

// Encode escapes every byte outside the quoted-printable-safe set as
// =HH, passes safe bytes through, and soft-wraps with a trailing '='
// so the physical CRLF is never counted against the policy. An
// embedded "\r\n" pair is a hard line break, ending the current line
// without a soft '='; a lone '\r' not followed by '\n' is an error.
func (c QuotedPrintable) Encode(data []byte) ([][]byte, error) {
	var line []byte
	var lines [][]byte
	first := int(c.First) - c.Reserved
	if first < 4 {
		first = 4
	}
	limit := first
	softLimit := limit - 1 // room for the soft-break '='

	flush := func(final bool) {
		if final {
			lines = append(lines, line)
		} else {
			lines = append(lines, append(append([]byte{}, line...), '='))
		}
		line = nil
		limit = int(c.Lines)
		softLimit = limit - 1
	}
	emit := func(tok []byte) {
		if len(line)+len(tok) > softLimit && !c.QMode {
			flush(false)
		}
		line = append(line, tok...)
	}

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == '\r':
			if i+1 >= len(data) || data[i+1] != '\n' {
				return nil, errf("quoted-printable", "bad crlf sequence")
			}
			lines = append(lines, line)
			line = nil
			limit = int(c.Lines)
			softLimit = limit - 1
			i++
		case c.QMode && b == ' ':
			emit([]byte{'_'})
		case c.QMode && (b == '_' || b == '?' || b == '='):
			emit([]byte{'=', intToHexDigit(int(b) >> 4), intToHexDigit(int(b))})
		case b == ' ' && !c.QMode:
			if i == len(data)-1 || data[i+1] == '\r' || data[i+1] == '\n' {
				emit([]byte{'=', '2', '0'})
			} else {
				emit([]byte{b})
			}
		case qpAllowed(b):
			emit([]byte{b})
		default:
			emit([]byte{'=', intToHexDigit(int(b) >> 4), intToHexDigit(int(b))})
		}
	}
	flush(true)
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		lines = [][]byte{{}}
	}
	return lines, nil
}

// Decode reverses Encode: a trailing '=' at end of line is a soft break
// (the following CRLF is elided), '=HH' becomes the literal byte, '_' is
// decoded to space only in Q-codec mode.
func (c QuotedPrintable) Decode(lines [][]byte) ([]byte, error) {
	out := make([]byte, 0, len(lines)*64)
	for li, ln := range lines {
		softBreak := false
		for i := 0; i < len(ln); i++ {
			b := ln[i]
			switch {
			case b == '=':
				if i == len(ln)-1 {
					// soft line break: elide it and the line's own
					// terminator, since it only exists to wrap within
					// the policy's line length.
					softBreak = true
					i = len(ln)
					continue
				}
				if i+2 >= len(ln) {
					return nil, errf("quoted-printable", "truncated escape")
				}
				hi, ok1 := hexDigitToInt(ln[i+1])
				lo, ok2 := hexDigitToInt(ln[i+2])
				if !ok1 || !ok2 {
					return nil, errf("quoted-printable", "bad hex digit in escape")
				}
				out = append(out, byte(hi<<4|lo))
				i += 2
			case c.QMode && b == '_':
				out = append(out, ' ')
			default:
				out = append(out, b)
			}
		}
		if li < len(lines)-1 && !softBreak {
			out = append(out, '\r', '\n')
		}
	}
	return out, nil
}
