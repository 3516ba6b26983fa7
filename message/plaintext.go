package message

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/karastojko/mailio-sub000/mimepart"
)

// PlainText returns the message's first text/plain part verbatim; if
// there is none but a text/html part exists, its tags are stripped to
// produce a readable fallback, the way a mail client's preview pane
// would render an HTML-only message.
func (m *Message) PlainText() (string, error) {
	if body, ok := findPart(m.Part, "plain"); ok {
		return string(body), nil
	}
	if body, ok := findPart(m.Part, "html"); ok {
		return stripHTML(body)
	}
	return "", nil
}

func findPart(p *mimepart.Part, subtype string) ([]byte, bool) {
	if p.ContentType.Top == mimepart.TopText && p.ContentType.Subtype == subtype {
		return p.Body, true
	}
	for _, kid := range p.Children {
		if body, ok := findPart(kid, subtype); ok {
			return body, true
		}
	}
	return nil, false
}

// stripHTML renders an HTML body as plain text, keeping only its text
// nodes — the token-stream walk html/htmlsafe.Sanitizer uses to filter
// tags, simplified here to discard markup rather than re-emit a safe
// subset of it.
func stripHTML(src []byte) (string, error) {
	var out bytes.Buffer
	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			out.Write(z.Text())
		}
	}
	if err := z.Err(); err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
