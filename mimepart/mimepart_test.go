package mimepart

import (
	"bytes"
	"testing"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

func TestSimplePartRoundTrip(t *testing.T) {
	p := New()
	p.ContentType = ContentType{Top: TopText, Subtype: "plain", Charset: "utf-8"}
	p.Encoding = Encoding7Bit
	p.Body = []byte("hello, world")

	var out bytes.Buffer
	if err := p.Format(&out, false); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	got, err := Parse(out.Bytes(), codec.Recommended, false, false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.ContentType.Top != TopText || got.ContentType.Subtype != "plain" {
		t.Errorf("ContentType = %+v", got.ContentType)
	}
	if string(got.Body) != "hello, world" {
		t.Errorf("Body = %q, want %q", got.Body, "hello, world")
	}
}

func TestMultipartRoundTrip(t *testing.T) {
	root := New()
	root.ContentType = ContentType{Top: TopMultipart, Subtype: "mixed"}
	root.Boundary = "BOUNDARY123"

	child1 := New()
	child1.ContentType = ContentType{Top: TopText, Subtype: "plain", Charset: "utf-8"}
	child1.Encoding = Encoding7Bit
	child1.Body = []byte("part one")

	child2 := New()
	child2.ContentType = ContentType{Top: TopText, Subtype: "plain", Charset: "utf-8"}
	child2.Encoding = Encoding7Bit
	child2.Body = []byte("part two")

	root.Children = []*Part{child1, child2}

	var out bytes.Buffer
	if err := root.Format(&out, false); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	got, err := Parse(out.Bytes(), codec.Recommended, false, false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.ContentType.Top != TopMultipart {
		t.Fatalf("ContentType.Top = %q, want multipart", got.ContentType.Top)
	}
	if len(got.Children) != 2 {
		t.Fatalf("Children = %d, want 2", len(got.Children))
	}
	if string(got.Children[0].Body) != "part one" || string(got.Children[1].Body) != "part two" {
		t.Errorf("Children bodies = %q, %q", got.Children[0].Body, got.Children[1].Body)
	}
}

func TestAttributeContinuationRoundTrip(t *testing.T) {
	p := New()
	p.ContentType = ContentType{Top: TopApplication, Subtype: "octet-stream"}
	p.Name = charset.New([]byte("résumé-very-long-filename-that-forces-rfc2231-continuation.pdf"))
	p.Encoding = EncodingBase64
	p.Body = []byte("binary content")

	var out bytes.Buffer
	if err := p.Format(&out, false); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("name*0*=")) {
		t.Errorf("Format output missing RFC 2231 continuation: %s", out.String())
	}

	got, err := Parse(out.Bytes(), codec.Recommended, false, false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Name.String() != p.Name.String() {
		t.Errorf("Name = %q, want %q", got.Name.String(), p.Name.String())
	}
}

func TestDotEscapeRoundTrip(t *testing.T) {
	p := New()
	p.ContentType = ContentType{Top: TopText, Subtype: "plain"}
	p.Encoding = Encoding7Bit
	p.Body = []byte(".leading dot\r\nsecond line")

	var out bytes.Buffer
	if err := p.Format(&out, true); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("..leading dot")) {
		t.Errorf("Format: want dot-stuffed output, got %s", out.String())
	}

	got, err := Parse(out.Bytes(), codec.Recommended, false, true)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if string(got.Body) != ".leading dot\r\nsecond line" {
		t.Errorf("Body = %q", got.Body)
	}
}
