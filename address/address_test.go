package address

import "testing"

func TestParseAddress(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantAddr string
	}{
		{"bob@example.com", "", "bob@example.com"},
		{"Bob Smith <bob@example.com>", "Bob Smith", "bob@example.com"},
		{`"Smith, Bob" <bob@example.com>`, "Smith, Bob", "bob@example.com"},
	}
	for _, c := range cases {
		a, err := ParseAddress(c.in)
		if err != nil {
			t.Fatalf("ParseAddress(%q) failed: %v", c.in, err)
		}
		if a.Addr != c.wantAddr {
			t.Errorf("ParseAddress(%q).Addr = %q, want %q", c.in, a.Addr, c.wantAddr)
		}
		if a.Name.String() != c.wantName {
			t.Errorf("ParseAddress(%q).Name = %q, want %q", c.in, a.Name.String(), c.wantName)
		}
	}
}

func TestParseMailboxesGroup(t *testing.T) {
	mb, err := ParseMailboxes("friends: alice@example.com, bob@example.com;, carol@example.com")
	if err != nil {
		t.Fatalf("ParseMailboxes failed: %v", err)
	}
	if len(mb.Groups) != 1 {
		t.Fatalf("ParseMailboxes: want 1 group, got %d", len(mb.Groups))
	}
	if mb.Groups[0].Name != "friends" {
		t.Errorf("group name = %q, want %q", mb.Groups[0].Name, "friends")
	}
	if len(mb.Groups[0].Members) != 2 {
		t.Errorf("group members = %d, want 2", len(mb.Groups[0].Members))
	}
	if len(mb.Addresses) != 1 || mb.Addresses[0].Addr != "carol@example.com" {
		t.Errorf("top-level addresses = %+v, want carol@example.com", mb.Addresses)
	}
}

// A group's terminating ';' is itself a sufficient separator; a comma
// after it is optional, not mandatory.
func TestParseMailboxesGroupNoTrailingComma(t *testing.T) {
	mb, err := ParseMailboxes(`kontakt: <kontakt@mailio.dev>; "kontakt" <kontakt@mailio.dev>`)
	if err != nil {
		t.Fatalf("ParseMailboxes failed: %v", err)
	}
	if len(mb.Groups) != 1 || len(mb.Groups[0].Members) != 1 {
		t.Fatalf("ParseMailboxes: want 1 group with 1 member, got %+v", mb.Groups)
	}
	if len(mb.Addresses) != 1 || mb.Addresses[0].Addr != "kontakt@mailio.dev" {
		t.Errorf("top-level addresses = %+v, want kontakt@mailio.dev", mb.Addresses)
	}
	if mb.Addresses[0].Name.String() != "kontakt" {
		t.Errorf("top-level address name = %q, want %q", mb.Addresses[0].Name.String(), "kontakt")
	}
}

func TestParseAddressNoAt(t *testing.T) {
	if _, err := ParseAddress("<not-an-address>"); err == nil {
		t.Error("ParseAddress: want error for angle-addr without @")
	}
}

func TestFormatAddressRoundTrip(t *testing.T) {
	a := Address{Name: nameCString("Bob Smith"), Addr: "bob@example.com"}
	got := Format(a)
	want := `Bob Smith <bob@example.com>`
	if got != want {
		t.Errorf("Format(%+v) = %q, want %q", a, got, want)
	}
	reparsed, err := ParseAddress(got)
	if err != nil {
		t.Fatalf("ParseAddress(Format(a)) failed: %v", err)
	}
	if reparsed.Addr != a.Addr {
		t.Errorf("round trip Addr = %q, want %q", reparsed.Addr, a.Addr)
	}
}
