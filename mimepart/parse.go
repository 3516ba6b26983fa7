package mimepart

import (
	"bytes"
	"fmt"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

type parseState int

const (
	stateReadingHeader parseState = iota
	stateReadingBody
	stateTerminated
)

// partParser drives one Part through the per-line state machine
// described by parse_by_line; it holds the accumulation buffers that
// don't belong on the finished Part.
type partParser struct {
	part        *Part
	state       parseState
	headerLines [][]byte
	body        bytes.Buffer
	child       *partParser
	dotEscape   bool
}

// Parse decodes data (a MIME part or whole message, CRLF-terminated
// lines) into a Part tree, honoring policy (the per-line length limit)
// and strict (decode strictness). dotEscape, when true, undoes SMTP
// dot-stuffing on every body line.
func Parse(data []byte, policy codec.Policy, strict bool, dotEscape bool) (*Part, error) {
	part := New()
	part.Policy = policy
	part.Strict = strict
	pp := &partParser{part: part, dotEscape: dotEscape}
	lines := splitCRLFLines(data)
	lines = append(lines, nil) // a final empty line always closes the top part
	for _, ln := range lines {
		if err := pp.feedLine(ln); err != nil {
			return nil, err
		}
	}
	return part, nil
}

func splitCRLFLines(data []byte) [][]byte {
	var lines [][]byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			lines = append(lines, trimCR(data))
			break
		}
		lines = append(lines, trimCR(data[:i]))
		data = data[i+1:]
	}
	return lines
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

func (pp *partParser) feedLine(line []byte) error {
	policy := pp.part.linePolicy()
	if len(line) > int(policy) {
		return fmt.Errorf("mimepart: line of %d octets exceeds policy of %d", len(line), policy)
	}
	switch pp.state {
	case stateReadingHeader:
		return pp.feedHeaderLine(line)
	case stateReadingBody:
		return pp.feedBodyLine(line)
	default: // stateTerminated: tolerate trailing blank lines
		return nil
	}
}

func (pp *partParser) feedHeaderLine(line []byte) error {
	if len(line) == 0 {
		pp.state = stateReadingBody
		return pp.finishHeaders()
	}
	pp.headerLines = append(pp.headerLines, append([]byte{}, line...))
	return nil
}

func (pp *partParser) finishHeaders() error {
	logical := unfoldHeaders(pp.headerLines)
	for _, ln := range logical {
		name, value, ok := splitHeaderLine(ln)
		if !ok {
			if pp.part.Strict {
				return fmt.Errorf("mimepart: malformed header line %q", ln)
			}
			continue
		}
		if !validValue(value) {
			if pp.part.Strict {
				return fmt.Errorf("mimepart: invalid header value %q", value)
			}
		}
		if err := pp.assignHeader(string(name), value); err != nil {
			return err
		}
	}
	if pp.part.IsMultipart() && pp.part.Boundary == "" {
		if pp.part.Strict {
			return fmt.Errorf("mimepart: multipart Content-Type without boundary")
		}
	}
	return nil
}

func (pp *partParser) assignHeader(name string, value []byte) error {
	p := pp.part
	switch canonicalHeaderName(name) {
	case "Content-Type":
		ct, boundary, partName, err := ParseContentType(value, p.Strict)
		if err != nil {
			return err
		}
		p.ContentType = ct
		p.Boundary = boundary
		p.Name = partName
	case "Content-Transfer-Encoding":
		enc, err := ParseEncoding(value, p.Strict)
		if err != nil {
			return err
		}
		p.Encoding = enc
	case "Content-Disposition":
		disp, filename, err := ParseDisposition(value, p.Strict)
		if err != nil {
			return err
		}
		p.Disposition = disp
		if !filename.Empty() && p.Name.Empty() {
			p.Name = filename
		}
	case "Content-ID":
		p.ContentID = trimAngles(string(value))
	case "MIME-Version":
		p.VersionToken = string(value)
	default:
		p.OtherHeaders = append(p.OtherHeaders, RawHeader{Name: name, Value: value})
	}
	return nil
}

func trimAngles(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

func canonicalHeaderName(name string) string {
	switch lowerASCII(name) {
	case "content-type":
		return "Content-Type"
	case "content-transfer-encoding":
		return "Content-Transfer-Encoding"
	case "content-disposition":
		return "Content-Disposition"
	case "content-id":
		return "Content-ID"
	case "mime-version":
		return "MIME-Version"
	}
	return name
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (pp *partParser) feedBodyLine(line []byte) error {
	p := pp.part
	if p.Boundary != "" {
		return pp.feedBoundedBodyLine(line)
	}
	if len(line) == 0 {
		pp.state = stateTerminated
		return pp.parseContent()
	}
	pp.body.Write(pp.unescapeDot(line))
	pp.body.WriteString("\r\n")
	return nil
}

func (pp *partParser) feedBoundedBodyLine(line []byte) error {
	p := pp.part
	open := "--" + p.Boundary
	closeTag := open + "--"
	switch string(line) {
	case closeTag:
		if pp.child != nil {
			_ = pp.child.feedLine(nil)
			pp.child = nil
		}
		pp.state = stateTerminated
		return nil
	case open:
		if pp.child != nil {
			_ = pp.child.feedLine(nil)
		}
		child := New()
		child.Policy = p.Policy
		child.Strict = p.Strict
		cp := &partParser{part: child, dotEscape: pp.dotEscape}
		pp.child = cp
		p.Children = append(p.Children, child)
		return nil
	default:
		if pp.child != nil {
			return pp.child.feedLine(line)
		}
		// preamble before the first boundary: discarded.
		return nil
	}
}

func (pp *partParser) unescapeDot(line []byte) []byte {
	if pp.dotEscape && len(line) > 0 && line[0] == '.' {
		return line[1:]
	}
	return line
}

func (pp *partParser) parseContent() error {
	p := pp.part
	if p.IsMultipart() {
		return nil
	}
	decoded, err := decodeBody(pp.body.Bytes(), p.Encoding, p.linePolicy(), p.Strict)
	if err != nil {
		return err
	}
	if p.ContentType.Top == TopText && p.ContentType.Charset != "" {
		if transcoded, terr := charset.Decode(p.ContentType.Charset, decoded); terr == nil {
			decoded = transcoded
		}
	}
	p.Body = decoded
	return nil
}

func decodeBody(data []byte, enc Encoding, policy codec.Policy, strict bool) ([]byte, error) {
	lines := splitCRLFLines(data)
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	switch enc {
	case EncodingBase64:
		return codec.Base64{Lines: policy}.Decode(lines)
	case EncodingQuotedPrintable:
		return codec.QuotedPrintable{Lines: policy}.Decode(lines)
	case EncodingBinary:
		return codec.Binary{Lines: policy}.Decode(lines), nil
	case Encoding8Bit:
		s, err := codec.Bit8{Lines: policy}.Decode(lines)
		return []byte(s), err
	default:
		s, err := codec.Bit7{Lines: policy, Strict: strict}.Decode(lines)
		return []byte(s), err
	}
}
