// Package imap implements an IMAP retrieval client state machine:
// LOGIN, STARTTLS, SELECT, STATUS, FETCH n RFC822, STORE+CLOSE, LOGOUT,
// each command prefixed with an incrementing decimal tag (spec §4.9).
//
// Grounded on HouzuoGuo-laitos/toolbox/imaps.go's converse (challenge/tag
// generation, reading lines until the tag reappears) and, for the
// tag/result/response-text split, original_source/src/imap.cpp's
// parse_tag_result. Response bodies are parsed by imap/respparser.
package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"crawshaw.io/iox"

	"github.com/karastojko/mailio-sub000/codec"
	"github.com/karastojko/mailio-sub000/dialog"
	"github.com/karastojko/mailio-sub000/imap/respparser"
	"github.com/karastojko/mailio-sub000/message"
)

// State is a position in the client's retrieval state machine.
type State int

const (
	StateDisconnected State = iota
	StateGreeted
	StateAuthenticated
	StateSelected
	StateCommand
	StateLogout
)

// Error is a tagged NO or BAD response.
type Error struct {
	Result string // "NO" or "BAD"
	Text   string
}

func (e *Error) Error() string { return fmt.Sprintf("imap: %s %s", e.Result, e.Text) }

// Client is an IMAP retrieval session.
type Client struct {
	dialog *dialog.Dialog
	parser *respparser.Parser
	filer  *iox.Filer
	state  State
	tag    int

	// Policy and Strict govern how a fetched RFC822 message is parsed.
	// A FETCH literal arrives whole rather than line-by-line over the
	// wire, but mimepart's parser still applies Policy as a hard per-line
	// length bound, so this defaults to Mandatory rather than the much
	// tighter Recommended (78) a real message body routinely exceeds.
	Policy codec.Policy
	Strict bool
}

// Connect opens a dialog to host:port and reads the server's greeting.
func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	d, err := dialog.Connect(host, port, timeout)
	if err != nil {
		return nil, err
	}
	filer := iox.NewFiler(0)
	c := &Client{
		dialog: d,
		filer:  filer,
		parser: respparser.New(d.Reader(), filer),
		state:  StateDisconnected,
		Policy: codec.Mandatory,
	}
	if err := c.readGreeting(); err != nil {
		d.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) State() State { return c.state }

// Close closes the underlying dialog.
func (c *Client) Close() error { return c.dialog.Close() }

func (c *Client) readGreeting() error {
	resp, err := c.readResponse()
	if err != nil {
		return err
	}
	if resp.Tag != "*" {
		return fmt.Errorf("imap: expected untagged greeting, got tag %q", resp.Tag)
	}
	c.state = StateGreeted
	return nil
}

func (c *Client) readResponse() (*respparser.Response, error) {
	if err := c.dialog.ArmDeadline(); err != nil {
		c.dialog.Fail()
		return nil, err
	}
	resp, err := c.parser.ReadResponse()
	if err != nil {
		c.dialog.Fail()
		return nil, err
	}
	return resp, nil
}

// nextTag returns the next command tag and increments the counter.
func (c *Client) nextTag() string {
	c.tag++
	return fmt.Sprintf("A%d", c.tag)
}

// command sends "<tag> <line>" and reads responses until the matching
// tagged completion, calling onUntagged for every untagged response
// seen along the way. A non-OK tagged result becomes an *Error.
func (c *Client) command(line string, onUntagged func(*respparser.Response)) (*respparser.Response, error) {
	tag := c.nextTag()
	if err := c.dialog.Send(tag + " " + line); err != nil {
		return nil, err
	}
	for {
		resp, err := c.readResponse()
		if err != nil {
			return nil, err
		}
		if resp.Tag == "*" {
			if onUntagged != nil {
				onUntagged(resp)
			}
			continue
		}
		if resp.Tag != tag {
			return nil, fmt.Errorf("imap: reply tag %q does not match command tag %q", resp.Tag, tag)
		}
		if resp.Result != "OK" {
			return resp, &Error{Result: resp.Result, Text: joinAtoms(resp.Mandatory)}
		}
		return resp, nil
	}
}

func joinAtoms(toks []*respparser.Token) string {
	s := ""
	for i, t := range toks {
		if i > 0 {
			s += " "
		}
		if t.Kind == respparser.KindAtom {
			s += t.Atom
		}
	}
	return s
}

// Login sends LOGIN user pass.
func (c *Client) Login(user, pass string) error {
	if _, err := c.command(fmt.Sprintf("LOGIN %s %s", user, pass), nil); err != nil {
		return err
	}
	c.state = StateAuthenticated
	return nil
}

// StartTLS sends STARTTLS, expects a tagged OK, then performs the
// in-place TLS handshake and rebinds the response parser to the
// upgraded stream.
func (c *Client) StartTLS(cfg *tls.Config) error {
	if _, err := c.command("STARTTLS", nil); err != nil {
		return err
	}
	if err := c.dialog.UpgradeTLS(cfg); err != nil {
		return err
	}
	c.parser = respparser.New(c.dialog.Reader(), c.filer)
	return nil
}

// Select sends SELECT mailbox.
func (c *Client) Select(mailbox string) error {
	if _, err := c.command(fmt.Sprintf("SELECT %s", mailbox), nil); err != nil {
		return err
	}
	c.state = StateSelected
	return nil
}

// Status sends STATUS mailbox (MESSAGES) and returns the message count
// reported in the untagged "* STATUS mailbox (MESSAGES n)" response.
func (c *Client) Status(mailbox string) (int, error) {
	var messages int
	var found bool
	_, err := c.command(fmt.Sprintf("STATUS %s (MESSAGES)", mailbox), func(resp *respparser.Response) {
		list, ok := respparser.FindListWithFirstAtom(resp.Mandatory, "MESSAGES")
		if !ok || len(list.Children) < 2 {
			return
		}
		n, convErr := parseAtomInt(list.Children[1])
		if convErr == nil {
			messages, found = n, true
		}
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("imap: STATUS reply did not include MESSAGES")
	}
	return messages, nil
}

func parseAtomInt(t *respparser.Token) (int, error) {
	if t.Kind != respparser.KindAtom {
		return 0, fmt.Errorf("imap: expected atom, got %v", t.Kind)
	}
	var n int
	if _, err := fmt.Sscanf(t.Atom, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Fetch sends FETCH n RFC822, parses the RFC822 literal out of the
// matching untagged FETCH response, and parses it as a message.Message.
func (c *Client) Fetch(n int) (*message.Message, error) {
	var body *iox.BufferFile
	_, err := c.command(fmt.Sprintf("FETCH %d RFC822", n), func(resp *respparser.Response) {
		for _, t := range resp.Mandatory {
			if t.Kind != respparser.KindList {
				continue
			}
			if lit, ok := respparser.FindLiteralAfterAtom(t.Children, "RFC822"); ok {
				body = lit.Literal
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("imap: FETCH reply did not include an RFC822 literal")
	}
	data, err := readAll(body)
	if err != nil {
		return nil, err
	}
	return message.Parse(data, c.Policy, c.Strict, false)
}

func readAll(b *iox.BufferFile) ([]byte, error) {
	if _, err := b.Seek(0, 0); err != nil {
		return nil, err
	}
	return io.ReadAll(b)
}

// Remove sends STORE n +FLAGS (\Deleted) followed by CLOSE, expunging
// the message on mailbox close (spec §4.9's REMOVE algorithm).
func (c *Client) Remove(n int) error {
	if _, err := c.command(fmt.Sprintf(`STORE %d +FLAGS (\Deleted)`, n), nil); err != nil {
		return err
	}
	_, err := c.command("CLOSE", nil)
	return err
}

// Logout sends LOGOUT and closes the dialog.
func (c *Client) Logout() error {
	c.state = StateLogout
	c.command("LOGOUT", nil) // intentionally ignore the reply; we're closing regardless
	return c.dialog.Close()
}
