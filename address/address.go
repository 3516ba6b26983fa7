// Package address implements RFC 5322 §3.4 address, group and mailbox
// list parsing and formatting.
//
// Grounded on third_party/imf/addr.go (itself adapted from net/mail),
// reworked around the Address/Group/Mailboxes data model and the
// BEGIN/NAMEADDR/QNAMEADDR/ADDR_BR state machine.
package address

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

// Address is a single RFC 5322 mailbox: an optional display name and a
// required addr-spec (local-part@domain).
type Address struct {
	Name charset.CString
	Addr string
}

// Empty reports whether both fields are unset.
func (a Address) Empty() bool { return a.Name.Empty() && a.Addr == "" }

// Group is a named collection of addresses (RFC 5322 group syntax,
// "display-name: mailbox-list;").
type Group struct {
	Name    string
	Members []Address
}

// Mailboxes is an ordered collection of top-level addresses and groups,
// as found in a From/To/Cc/Bcc header value.
type Mailboxes struct {
	Addresses []Address
	Groups    []Group
}

// Empty reports whether the collection has neither addresses nor groups.
func (m Mailboxes) Empty() bool { return len(m.Addresses) == 0 && len(m.Groups) == 0 }

// Add appends a as a new top-level address.
func (m *Mailboxes) Add(a Address) { m.Addresses = append(m.Addresses, a) }

// normalizeDomain converts a domain to its ASCII (punycode) form when it
// contains non-ASCII labels, round-tripping IDN domains through
// golang.org/x/net/idna the way a mail client must before handing an
// addr-spec to SMTP.
func normalizeDomain(domain string) (string, error) {
	if charset.IsASCII([]byte(domain)) {
		return domain, nil
	}
	return idna.ToASCII(domain)
}

// Format renders a single address as "name <addr>" or bare "addr",
// RFC 2047-encoding a non-ASCII display name.
func Format(a Address) string {
	addr := formatAddrSpec(a.Addr)
	if a.Name.Empty() {
		return addr
	}
	if a.Name.Charset == charset.ASCII {
		return quotePhraseIfNeeded(a.Name.String()) + " " + addr
	}
	method := codec.MethodQuotedPrintable
	if strings.ContainsAny(a.Name.String(), "\"#$%&'(),.:;<>@[]^`{|}~") {
		method = codec.MethodBase64
	}
	q := codec.QCodec{First: codec.Recommended, Lines: codec.Recommended, Method: method}
	words := q.Encode(a.Name)
	var parts []string
	for _, w := range words {
		parts = append(parts, string(w))
	}
	return strings.Join(parts, " ") + " " + addr
}

// FormatList renders a Mailboxes value as a comma-separated header value.
func FormatList(m Mailboxes) string {
	var parts []string
	for _, a := range m.Addresses {
		parts = append(parts, Format(a))
	}
	for _, g := range m.Groups {
		var members []string
		for _, a := range g.Members {
			members = append(members, Format(a))
		}
		parts = append(parts, g.Name+": "+strings.Join(members, ", ")+";")
	}
	return strings.Join(parts, ", ")
}

func formatAddrSpec(addr string) string {
	at := strings.LastIndex(addr, "@")
	local, domain := addr, ""
	if at >= 0 {
		local, domain = addr[:at], addr[at+1:]
	}
	if needsQuoting(local) {
		local = quoteString(local)
	}
	if domain != "" {
		if ascii, err := normalizeDomain(domain); err == nil {
			domain = ascii
		}
		return local + "@" + domain
	}
	return local
}

func needsQuoting(local string) bool {
	for i := 0; i < len(local); i++ {
		c := local[i]
		if isAtomChar(c) {
			continue
		}
		if c == '.' && i > 0 && i < len(local)-1 && local[i-1] != '.' {
			continue
		}
		return true
	}
	return false
}

func quotePhraseIfNeeded(s string) string {
	for i := 0; i < len(s); i++ {
		if !isVchar(s[i]) && s[i] != ' ' {
			return quoteString(s)
		}
	}
	for _, c := range []byte(s) {
		if isSpecial(c) {
			return quoteString(s)
		}
	}
	return s
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

func isAtomChar(c byte) bool {
	if isSpecial(c) || c == ' ' || c == '"' {
		return false
	}
	return isVchar(c)
}

func isSpecial(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', ':', ';', '@', '\\', ',', '.', '"':
		return true
	}
	return false
}

func isVchar(c byte) bool { return c >= '!' && c <= '~' }
