package address

import (
	"fmt"
	"strings"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

// parser implements the BEGIN/NAMEADDR/QNAMEADDR/ADDR_BR state machine:
// a token containing '@' is tried as an addr-spec first (NAMEADDR /
// ADDR tie-break); a quoted string is always a display name
// (QNAMEADDR); an angle-bracketed run is always an address
// (ADDR_BR_BEGIN/END); group syntax is recognized at the top level.
type parser struct {
	s string
}

// ParseMailboxes parses a comma-separated address-list header value
// (From, To, Cc, Bcc), including group syntax.
func ParseMailboxes(s string) (Mailboxes, error) {
	p := &parser{s: s}
	var mb Mailboxes
	for {
		p.skipSpace()
		if p.empty() {
			break
		}
		groupsBefore := len(mb.Groups)
		if err := p.parseAddressOrGroup(&mb); err != nil {
			return Mailboxes{}, err
		}
		wasGroup := len(mb.Groups) > groupsBefore
		p.skipSpace()
		if p.empty() {
			break
		}
		if !p.consume(',') && !wasGroup {
			return Mailboxes{}, fmt.Errorf("address: expected comma, got %q", p.s)
		}
	}
	return mb, nil
}

// ParseAddress parses a single RFC 5322 mailbox, e.g. "A <a@b.com>".
func ParseAddress(s string) (Address, error) {
	var mb Mailboxes
	p := &parser{s: s}
	p.skipSpace()
	if err := p.parseAddressOrGroup(&mb); err != nil {
		return Address{}, err
	}
	p.skipSpace()
	if !p.empty() {
		return Address{}, fmt.Errorf("address: trailing data %q", p.s)
	}
	if len(mb.Groups) > 0 || len(mb.Addresses) != 1 {
		return Address{}, fmt.Errorf("address: expected single address")
	}
	return mb.Addresses[0], nil
}

func (p *parser) parseAddressOrGroup(mb *Mailboxes) error {
	p.skipSpace()
	if p.empty() {
		return fmt.Errorf("address: no address")
	}

	// NAMEADDR tie-break: try addr-spec (a token containing '@') first.
	save := *p
	if spec, err := p.consumeAddrSpec(); err == nil {
		mb.Add(Address{Addr: spec})
		return nil
	}
	*p = save

	var displayName string
	if p.peek() != '<' {
		phrase, err := p.consumePhrase()
		if err != nil {
			return err
		}
		displayName = phrase
	}

	p.skipSpace()
	if p.consume(':') {
		g := Group{Name: displayName}
		if err := p.consumeGroupMembers(&g); err != nil {
			return err
		}
		mb.Groups = append(mb.Groups, g)
		return nil
	}

	if !p.consume('<') {
		return fmt.Errorf("address: expected angle-addr, got %q", p.s)
	}
	spec, err := p.consumeAddrSpec()
	if err != nil {
		return err
	}
	if !p.consume('>') {
		return fmt.Errorf("address: unclosed angle-addr")
	}
	if spec == "" || !strings.Contains(spec, "@") {
		return fmt.Errorf("address: angle-addr has no @")
	}
	mb.Add(Address{Name: nameCString(displayName), Addr: spec})
	return nil
}

// consumeGroupMembers parses the mailbox-list before the group's
// terminating ';'. Groups do not nest.
func (p *parser) consumeGroupMembers(g *Group) error {
	p.skipSpace()
	if p.consume(';') {
		return nil
	}
	for {
		p.skipSpace()
		var tmp Mailboxes
		if err := p.parseAddressOrGroup(&tmp); err != nil {
			return err
		}
		g.Members = append(g.Members, tmp.Addresses...)
		p.skipSpace()
		if p.consume(';') {
			return nil
		}
		if !p.consume(',') {
			return fmt.Errorf("address: expected comma inside group, got %q", p.s)
		}
	}
}

func nameCString(s string) charset.CString {
	if s == "" {
		return charset.CString{}
	}
	return charset.New([]byte(s))
}

func (p *parser) consumeAddrSpec() (spec string, err error) {
	orig := *p
	defer func() {
		if err != nil {
			*p = orig
		}
	}()

	var local string
	p.skipSpace()
	if p.empty() {
		return "", fmt.Errorf("address: no addr-spec")
	}
	if p.peek() == '"' {
		local, err = p.consumeQuotedString()
	} else {
		local, err = p.consumeAtom(true)
	}
	if err != nil {
		return "", err
	}
	if !p.consume('@') {
		return "", fmt.Errorf("address: missing @ in addr-spec")
	}
	var domain string
	p.skipSpace()
	if p.empty() {
		return "", fmt.Errorf("address: no domain in addr-spec")
	}
	domain, err = p.consumeAtom(true)
	if err != nil {
		return "", err
	}
	if ascii, nerr := normalizeDomain(domain); nerr == nil {
		domain = ascii
	}
	return local + "@" + domain, nil
}

// consumePhrase parses 1*word, decoding any RFC 2047 encoded words and
// joining adjacent encoded-word segments without an intervening space
// (RFC 2047 §6.2).
func (p *parser) consumePhrase() (string, error) {
	var words []string
	prevEncoded := false
	for {
		p.skipSpace()
		if p.empty() {
			break
		}
		var word string
		var err error
		encoded := false
		if p.peek() == '"' {
			word, err = p.consumeQuotedString()
		} else {
			word, err = p.consumeAtom(true)
			if err == nil {
				word, encoded = decodeWordIfEncoded(word)
			}
		}
		if err != nil {
			break
		}
		if prevEncoded && encoded {
			words[len(words)-1] += word
		} else {
			words = append(words, word)
		}
		prevEncoded = encoded
	}
	if len(words) == 0 {
		return "", fmt.Errorf("address: missing word in phrase")
	}
	return strings.Join(words, " "), nil
}

func decodeWordIfEncoded(word string) (string, bool) {
	decoded, err := codec.CheckDecode([]byte(word))
	if err != nil {
		return word, false
	}
	if string(decoded) == word {
		return word, false
	}
	return string(decoded), true
}

func (p *parser) consumeQuotedString() (string, error) {
	i := 1
	var b strings.Builder
	escaped := false
	for {
		if i >= len(p.s) {
			return "", fmt.Errorf("address: unclosed quoted-string")
		}
		c := p.s[i]
		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case c == '"':
			p.s = p.s[i+1:]
			return b.String(), nil
		case c == '\\':
			escaped = true
		default:
			b.WriteByte(c)
		}
		i++
	}
}

// consumeAtom parses an RFC 5322 dot-atom when dot is true.
func (p *parser) consumeAtom(dot bool) (string, error) {
	i := 0
	for i < len(p.s) && isAtomOrDot(p.s[i], dot) {
		i++
	}
	if i == 0 {
		return "", fmt.Errorf("address: invalid atom at %q", p.s)
	}
	atom := p.s[:i]
	p.s = p.s[i:]
	return atom, nil
}

func isAtomOrDot(c byte, dot bool) bool {
	if c == '.' {
		return dot
	}
	return isAtomChar(c)
}

func (p *parser) consume(c byte) bool {
	if p.empty() || p.s[0] != c {
		return false
	}
	p.s = p.s[1:]
	return true
}

func (p *parser) skipSpace() { p.s = strings.TrimLeft(p.s, " \t") }

func (p *parser) peek() byte { return p.s[0] }

func (p *parser) empty() bool { return len(p.s) == 0 }
