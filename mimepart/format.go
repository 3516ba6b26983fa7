package mimepart

import (
	"bytes"
	"fmt"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

// Format writes p's wire representation: header block, blank line,
// encoded content, then each child wrapped in its boundary delimiters.
// When dotEscape is true, any body line beginning with '.' is prefixed
// with an extra '.' (SMTP dot-stuffing, RFC 5321 §4.5.2).
func (p *Part) Format(out *bytes.Buffer, dotEscape bool) error {
	if p.IsMultipart() && p.Boundary == "" {
		return fmt.Errorf("mimepart: multipart part has no boundary")
	}
	if err := p.FormatHeaders(out); err != nil {
		return err
	}
	return p.FormatBodyAndChildren(out, dotEscape)
}

// FormatBodyAndChildren writes the blank line separating headers from
// content (when there is any), the encoded body, and each child between
// its boundary delimiters. Message wraps this around its own envelope
// headers so Subject can be placed between the MIME headers and the
// blank line, matching the teacher's header ordering.
func (p *Part) FormatBodyAndChildren(out *bytes.Buffer, dotEscape bool) error {
	hasContent := len(p.Body) > 0 || len(p.Children) > 0
	if hasContent {
		out.WriteString("\r\n")
	}
	if len(p.Body) > 0 {
		if err := p.formatBody(out, dotEscape); err != nil {
			return err
		}
	}
	for _, kid := range p.Children {
		out.WriteString("--" + p.Boundary + "\r\n")
		if err := kid.Format(out, dotEscape); err != nil {
			return err
		}
		out.WriteString("\r\n")
	}
	if len(p.Children) > 0 {
		out.WriteString("--" + p.Boundary + "--\r\n")
	}
	return nil
}

// FormatHeaders writes the part's Content-Type/Content-Transfer-Encoding/
// Content-Disposition/Content-ID headers (and any OtherHeaders), without
// the trailing blank line.
func (p *Part) FormatHeaders(out *bytes.Buffer) error {
	for _, h := range p.OtherHeaders {
		if _, err := EncodeHeaderLine(out, h.Name, h.Value, p.linePolicy()); err != nil {
			return err
		}
	}
	if p.ContentType.set() {
		v := p.formatContentTypeValue()
		if _, err := EncodeHeaderLine(out, "Content-Type", v, p.linePolicy()); err != nil {
			return err
		}
	}
	if p.Encoding != EncodingNone {
		if _, err := EncodeHeaderLine(out, "Content-Transfer-Encoding", []byte(p.Encoding), p.linePolicy()); err != nil {
			return err
		}
	}
	if p.Disposition != DispositionNone {
		v := p.formatDispositionValue()
		if _, err := EncodeHeaderLine(out, "Content-Disposition", v, p.linePolicy()); err != nil {
			return err
		}
	}
	if p.ContentID != "" {
		if _, err := EncodeHeaderLine(out, "Content-ID", []byte("<"+p.ContentID+">"), p.linePolicy()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Part) linePolicy() codec.Policy {
	if p.Policy == 0 {
		return codec.Recommended
	}
	return p.Policy
}

func (p *Part) formatContentTypeValue() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s/%s", p.ContentType.Top, p.ContentType.Subtype)
	if p.ContentType.Charset != "" {
		fmt.Fprintf(&b, "; charset=%s", p.ContentType.Charset)
	}
	if p.Boundary != "" {
		fmt.Fprintf(&b, `; boundary="%s"`, p.Boundary)
	}
	if !p.Name.Empty() {
		writeAttr(&b, "name", p.Name, p.linePolicy())
	}
	for _, kv := range p.ContentType.OtherParams {
		writeAttr(&b, kv.Name, kv.Value, p.linePolicy())
	}
	return b.Bytes()
}

func (p *Part) formatDispositionValue() []byte {
	var b bytes.Buffer
	b.WriteString(string(p.Disposition))
	if fn, ok := p.dispositionFilename(); ok {
		writeAttr(&b, "filename", fn, p.linePolicy())
	}
	return b.Bytes()
}

// dispositionFilename reports the filename to place on
// Content-Disposition: the part's Name, if any.
func (p *Part) dispositionFilename() (charset.CString, bool) {
	if p.Name.Empty() {
		return charset.CString{}, false
	}
	return p.Name, true
}

// writeAttr appends "; attr=value" in plain token/quoted-string form
// when v is pure ASCII and short enough to fit on the current line,
// otherwise emits the RFC 2231 §3 attribute continuation form
// (attr*0*=UTF-8''pct-encoded; attr*1*=...).
func writeAttr(b *bytes.Buffer, name string, v charset.CString, policy codec.Policy) {
	if v.Charset == charset.ASCII && len(v.Bytes)+len(name)+3 <= int(policy) {
		fmt.Fprintf(b, `; %s="%s"`, name, quoteAttrValue(v.String()))
		return
	}
	enc := v.Charset
	if enc == "" {
		enc = charset.UTF8
	}
	payload := codec.Percent{}.Encode(v.Bytes)
	prefix := []byte(enc + "''")
	first := append(append([]byte{}, prefix...), payload...)
	budget := int(policy) - len(name) - len("*0*=") - len("; ")
	if budget < 1 {
		budget = 1
	}
	var segs [][]byte
	rest := first
	for len(rest) > 0 {
		n := budget
		if n > len(rest) {
			n = len(rest)
		}
		segs = append(segs, rest[:n])
		rest = rest[n:]
	}
	for i, seg := range segs {
		fmt.Fprintf(b, "; %s*%d*=%s", name, i, seg)
	}
}

func quoteAttrValue(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (p *Part) formatBody(out *bytes.Buffer, dotEscape bool) error {
	lines, err := encodeBody(p.Body, p.Encoding, p.linePolicy())
	if err != nil {
		return err
	}
	for _, ln := range lines {
		if dotEscape && len(ln) > 0 && ln[0] == '.' {
			out.WriteByte('.')
		}
		out.Write(ln)
		out.WriteString("\r\n")
	}
	return nil
}

func encodeBody(body []byte, enc Encoding, policy codec.Policy) ([][]byte, error) {
	switch enc {
	case EncodingBase64:
		return codec.Base64{First: policy, Lines: policy}.Encode(body), nil
	case EncodingQuotedPrintable:
		return codec.QuotedPrintable{First: policy, Lines: policy}.Encode(body)
	case EncodingBinary:
		return codec.Binary{First: policy, Lines: policy}.Encode(body), nil
	case Encoding8Bit:
		return codec.Bit8{First: policy, Lines: policy}.Encode(body)
	default:
		return codec.Bit7{First: policy, Lines: policy, Strict: false}.Encode(body)
	}
}
