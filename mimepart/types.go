// Package mimepart implements the RFC 2045/2046/2231 MIME part tree:
// content-type/transfer-encoding/disposition values, header parsing, and
// the recursive format/parse state machines that turn a Part tree into
// wire bytes and back.
package mimepart

import (
	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

// Top is the primary type of a Content-Type header ("text", "image", …).
type Top string

const (
	TopNone        Top = ""
	TopText        Top = "text"
	TopImage       Top = "image"
	TopAudio       Top = "audio"
	TopVideo       Top = "video"
	TopApplication Top = "application"
	TopMultipart   Top = "multipart"
	TopMessage     Top = "message"
)

// Param is one entry of an ordered Content-Type/Content-Disposition
// parameter map.
type Param struct {
	Name  string
	Value charset.CString
}

// Params is an insertion-ordered parameter list, keyed by lowercase
// name; duplicates are not merged automatically (RFC 2231 continuation
// merging happens separately, before Params is populated).
type Params []Param

// Get returns the value for name, and whether it was present.
func (p Params) Get(name string) (charset.CString, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return charset.CString{}, false
}

// Set appends or replaces the value for name.
func (p *Params) Set(name string, v charset.CString) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Param{Name: name, Value: v})
}

// ContentType is the parsed value of a Content-Type header.
//
// Invariant: Top == TopNone iff no Content-Type header was seen;
// otherwise Subtype is non-empty.
type ContentType struct {
	Top         Top
	Subtype     string
	Charset     string
	OtherParams Params
}

func (c ContentType) set() bool { return c.Top != TopNone }

// Encoding is the Content-Transfer-Encoding value. EncodingNone is
// equivalent to Encoding7Bit.
type Encoding string

const (
	EncodingNone            Encoding = ""
	Encoding7Bit            Encoding = "7bit"
	Encoding8Bit            Encoding = "8bit"
	EncodingBinary          Encoding = "binary"
	EncodingBase64          Encoding = "base64"
	EncodingQuotedPrintable Encoding = "quoted-printable"
)

// multipartSafe reports whether e is one of the encodings multipart
// parts are restricted to (none, 7bit, 8bit, binary).
func (e Encoding) multipartSafe() bool {
	switch e {
	case EncodingNone, Encoding7Bit, Encoding8Bit, EncodingBinary:
		return true
	}
	return false
}

// Disposition is the Content-Disposition value.
type Disposition string

const (
	DispositionNone       Disposition = ""
	DispositionInline     Disposition = "inline"
	DispositionAttachment Disposition = "attachment"
)

// RawHeader is a single header as it appeared in (or will appear in) the
// wire form: canonicalized name plus the unparsed value, used for any
// header the Part model doesn't give a dedicated field to.
type RawHeader struct {
	Name  string
	Value []byte
}

// Part is one node of a MIME part tree (spec's MIME part data type).
//
// Invariants: Boundary != "" implies ContentType.Top == TopMultipart;
// ContentType.Top == TopMultipart implies Boundary != "" at format
// time. All child Parts transitively satisfy the same invariants.
type Part struct {
	ContentType  ContentType
	Name         charset.CString
	Encoding     Encoding
	Disposition  Disposition
	ContentID    string
	Boundary     string
	Body         []byte
	Children     []*Part
	OtherHeaders []RawHeader
	VersionToken string

	// Policy and Strict govern encode/decode line wrapping and decode
	// strictness; a child created while parsing a multipart body
	// inherits its parent's values unless explicitly overridden,
	// mirroring mime.cpp's line_policy_ propagation.
	Policy codec.Policy
	Strict bool
}

// New returns a Part with spec default field values (version "1.0",
// recommended line policy).
func New() *Part {
	return &Part{
		VersionToken: "1.0",
		Policy:       codec.Recommended,
	}
}

// IsMultipart reports whether this part's Content-Type top-level type is
// "multipart".
func (p *Part) IsMultipart() bool { return p.ContentType.Top == TopMultipart }
