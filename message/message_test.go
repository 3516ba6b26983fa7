package message

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/karastojko/mailio-sub000/address"
	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

func TestFormatSimpleMessage(t *testing.T) {
	m := New()
	from := address.Address{Name: charset.FromString("mailio"), Addr: "adresa@mailio.dev"}
	m.SetFrom(from)
	m.SetTo(from)
	m.Subject = charset.FromString("Hello, World!")
	m.Body = []byte("Hello, World!")
	m.Date = time.Date(2014, 1, 17, 13, 9, 22, 0, time.UTC).
		In(time.FixedZone("", -7*3600-30*60))

	var out bytes.Buffer
	if err := m.Format(&out, false); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	wire := out.String()

	if !strings.Contains(wire, "Date: Fri, 17 Jan 2014 05:39:22 -0730\r\n") {
		t.Errorf("Format: missing expected Date line, got:\n%s", wire)
	}
	dateIdx := strings.Index(wire, "Date:")
	subjIdx := strings.Index(wire, "Subject:")
	if dateIdx < 0 || subjIdx < 0 || dateIdx > subjIdx {
		t.Errorf("Format: want Date before Subject, got:\n%s", wire)
	}
	if !strings.HasSuffix(wire, "\r\n\r\nHello, World!\r\n") {
		t.Errorf("Format: want blank line then body, got:\n%s", wire)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	m := New()
	from := address.Address{Addr: "alice@example.com"}
	to := address.Address{Addr: "bob@example.com"}
	m.SetFrom(from)
	m.SetTo(to)
	m.Subject = charset.FromString("test subject")
	m.Body = []byte("body text")

	var out bytes.Buffer
	if err := m.Format(&out, false); err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	got, err := Parse(out.Bytes(), codec.Recommended, false, false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(got.From.Addresses) != 1 || got.From.Addresses[0].Addr != "alice@example.com" {
		t.Errorf("From = %+v", got.From)
	}
	if len(got.To.Addresses) != 1 || got.To.Addresses[0].Addr != "bob@example.com" {
		t.Errorf("To = %+v", got.To)
	}
	if got.Subject.String() != "test subject" {
		t.Errorf("Subject = %q", got.Subject.String())
	}
	if string(got.Body) != "body text" {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestSubjectQCodecRoundTrip(t *testing.T) {
	cs := charset.CString{
		Bytes:     []byte("Здраво, Свете!"),
		Charset:   charset.UTF8,
		CodecHint: charset.HintBase64,
	}
	encoded := FormatSubject(cs, codec.Recommended)
	if !bytes.Contains(encoded, []byte("=?utf-8?B?")) {
		t.Errorf("FormatSubject: want a single base64 encoded word, got %q", encoded)
	}
	decoded, err := ParseSubject(encoded)
	if err != nil {
		t.Fatalf("ParseSubject failed: %v", err)
	}
	if decoded.String() != cs.String() {
		t.Errorf("ParseSubject(FormatSubject(cs)) = %q, want %q", decoded.String(), cs.String())
	}
}
