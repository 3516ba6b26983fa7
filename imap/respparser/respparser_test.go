package respparser

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"testing"

	"crawshaw.io/iox"
)

func newParser(t *testing.T, wire string) *Parser {
	t.Helper()
	filer := iox.NewFiler(0)
	return New(bufio.NewReader(strings.NewReader(wire)), filer)
}

func TestTaggedOK(t *testing.T) {
	p := newParser(t, "A1 OK LOGIN completed\r\n")
	resp, err := p.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if !resp.Tagged() || resp.Tag != "A1" || resp.Result != "OK" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Mandatory) != 2 || !resp.Mandatory[0].AtomEquals("LOGIN") || !resp.Mandatory[1].AtomEquals("completed") {
		t.Fatalf("Mandatory = %+v", resp.Mandatory)
	}
}

func TestUntaggedExists(t *testing.T) {
	p := newParser(t, "* 3 EXISTS\r\n")
	resp, err := p.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.Tag != "*" || resp.Result != "3" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Mandatory) != 1 || !resp.Mandatory[0].AtomEquals("EXISTS") {
		t.Fatalf("Mandatory = %+v", resp.Mandatory)
	}
}

func TestStatusParenList(t *testing.T) {
	p := newParser(t, "* STATUS INBOX (MESSAGES 42)\r\n")
	resp, err := p.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	list, ok := FindListWithFirstAtom(resp.Mandatory, "MESSAGES")
	if !ok {
		t.Fatalf("no MESSAGES list found in %+v", resp.Mandatory)
	}
	if len(list.Children) != 2 || !list.Children[1].AtomEquals("42") {
		t.Fatalf("list children = %+v", list.Children)
	}
}

func TestBracketedOptional(t *testing.T) {
	p := newParser(t, "A2 OK [READ-WRITE] SELECT completed\r\n")
	resp, err := p.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if len(resp.Optional) != 1 || !resp.Optional[0].AtomEquals("READ-WRITE") {
		t.Fatalf("Optional = %+v", resp.Optional)
	}
	if len(resp.Mandatory) != 2 || !resp.Mandatory[0].AtomEquals("SELECT") {
		t.Fatalf("Mandatory = %+v", resp.Mandatory)
	}
}

func TestFetchLiteral(t *testing.T) {
	body := "Subject: hi\r\n\r\nhello\r\n"
	wire := "* 1 FETCH (RFC822 {" + strconv.Itoa(len(body)) + "}\r\n" + body + ")\r\n"
	p := newParser(t, wire)
	resp, err := p.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if len(resp.Mandatory) != 1 || resp.Mandatory[0].Kind != KindList {
		t.Fatalf("Mandatory = %+v", resp.Mandatory)
	}
	lit, ok := FindLiteralAfterAtom(resp.Mandatory[0].Children, "RFC822")
	if !ok {
		t.Fatalf("no RFC822 literal in %+v", resp.Mandatory[0].Children)
	}
	if lit.Size != int64(len(body)) {
		t.Errorf("Size = %d, want %d", lit.Size, len(body))
	}
	got, err := io.ReadAll(lit.Literal)
	if err != nil {
		t.Fatalf("read literal: %v", err)
	}
	if string(got) != body {
		t.Errorf("literal body = %q, want %q", got, body)
	}
}

