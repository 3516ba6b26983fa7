// Package pop3 implements a POP3 retrieval client state machine on top
// of dialog.Dialog: greeting, USER/PASS authentication, LIST/UIDL/STAT,
// RETR/TOP message retrieval with dot-unstuffing, DELE, and the STLS
// upgrade.
//
// Grounded on HouzuoGuo-laitos/toolbox/imaps.go's converse-and-classify-
// status pattern (adapted from IMAP tag matching to POP3's +OK/-ERR
// word) and original_source/include/mailio/pop3.hpp for the exact
// command set and TOP n 0 header-only framing.
package pop3

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/karastojko/mailio-sub000/codec"
	"github.com/karastojko/mailio-sub000/dialog"
	"github.com/karastojko/mailio-sub000/message"
)

// State is a position in the client's retrieval state machine.
type State int

const (
	StateDisconnected State = iota
	StateGreeted
	StateAuthenticated
	StateIdle
	StateCommand
	StateQuit
)

// Error is a -ERR response from the server.
type Error struct {
	Text string
}

func (e *Error) Error() string { return fmt.Sprintf("pop3: -ERR %s", e.Text) }

// Client is a POP3 retrieval session.
type Client struct {
	dialog *dialog.Dialog
	state  State

	// Policy and Strict govern how a retrieved message body is parsed.
	Policy codec.Policy
	Strict bool
}

// Connect opens a dialog to host:port. The session starts in
// StateDisconnected until Authenticate reads the greeting.
func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	d, err := dialog.Connect(host, port, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{dialog: d, state: StateDisconnected, Policy: codec.Recommended}, nil
}

func (c *Client) State() State { return c.state }

// Close closes the underlying dialog.
func (c *Client) Close() error { return c.dialog.Close() }

// status splits a reply line on its first space; the leading token must
// be exactly "+OK" or "-ERR".
func status(line string) (ok bool, rest string, err error) {
	i := strings.IndexByte(line, ' ')
	word := line
	if i >= 0 {
		word = line[:i]
		rest = line[i+1:]
	}
	switch word {
	case "+OK":
		return true, rest, nil
	case "-ERR":
		return false, rest, nil
	default:
		return false, "", fmt.Errorf("pop3: unrecognized status word %q", word)
	}
}

// command sends line and reads a single-line +OK/-ERR reply.
func (c *Client) command(line string) (string, error) {
	if err := c.dialog.Send(line); err != nil {
		return "", err
	}
	reply, err := c.dialog.Receive()
	if err != nil {
		return "", err
	}
	ok, rest, err := status(reply)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &Error{Text: rest}
	}
	return rest, nil
}

// multiline reads a dot-terminated multi-line block following a +OK
// single-line reply already consumed by the caller: lines accumulate
// until one equal to ".", with dot-stuffed lines (leading "..") having
// one dot removed.
func (c *Client) multiline() ([]string, error) {
	var lines []string
	for {
		line, err := c.dialog.Receive()
		if err != nil {
			return nil, err
		}
		if line == "." {
			return lines, nil
		}
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		lines = append(lines, line)
	}
}

// Authenticate reads the server greeting, then sends USER/PASS.
func (c *Client) Authenticate(user, pass string) error {
	greeting, err := c.dialog.Receive()
	if err != nil {
		return err
	}
	ok, rest, err := status(greeting)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Text: rest}
	}
	c.state = StateGreeted

	if _, err := c.command("USER " + user); err != nil {
		return err
	}
	if _, err := c.command("PASS " + pass); err != nil {
		return err
	}
	c.state = StateAuthenticated
	c.state = StateIdle
	return nil
}

// StartTLS sends STLS, expects +OK, then performs the in-place TLS
// handshake (the POP3 STARTTLS-equivalent, per spec §4.8).
func (c *Client) StartTLS(cfg *tls.Config) error {
	if _, err := c.command("STLS"); err != nil {
		return err
	}
	return c.dialog.UpgradeTLS(cfg)
}

// MessageSize pairs a message number with its size in octets.
type MessageSize struct {
	Number int
	Size   int
}

// List returns the size in octets of message n, or of every message in
// the mailbox if n is zero.
func (c *Client) List(n int) ([]MessageSize, error) {
	if n != 0 {
		rest, err := c.command(fmt.Sprintf("LIST %d", n))
		if err != nil {
			return nil, err
		}
		ms, err := parseNumberValue(rest, n)
		if err != nil {
			return nil, err
		}
		return []MessageSize{ms}, nil
	}
	if _, err := c.command("LIST"); err != nil {
		return nil, err
	}
	lines, err := c.multiline()
	if err != nil {
		return nil, err
	}
	out := make([]MessageSize, 0, len(lines))
	for _, line := range lines {
		ms, err := parseNumberValue(line, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, nil
}

func parseNumberValue(line string, wantNumber int) (MessageSize, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return MessageSize{}, fmt.Errorf("pop3: malformed LIST/UIDL line %q", line)
	}
	num, err := strconv.Atoi(fields[0])
	if err != nil {
		return MessageSize{}, fmt.Errorf("pop3: malformed message number in %q: %v", line, err)
	}
	size, err := strconv.Atoi(fields[1])
	if err != nil {
		return MessageSize{}, fmt.Errorf("pop3: malformed size in %q: %v", line, err)
	}
	if wantNumber != 0 && num != wantNumber {
		return MessageSize{}, fmt.Errorf("pop3: LIST reply for message %d, want %d", num, wantNumber)
	}
	return MessageSize{Number: num, Size: size}, nil
}

// MessageUID pairs a message number with its opaque unique ID string.
type MessageUID struct {
	Number int
	UID    string
}

// Uidl returns the unique ID of message n, or of every message in the
// mailbox if n is zero.
func (c *Client) Uidl(n int) ([]MessageUID, error) {
	if n != 0 {
		rest, err := c.command(fmt.Sprintf("UIDL %d", n))
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return nil, fmt.Errorf("pop3: malformed UIDL line %q", rest)
		}
		num, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("pop3: malformed message number in %q: %v", rest, err)
		}
		return []MessageUID{{Number: num, UID: fields[1]}}, nil
	}
	if _, err := c.command("UIDL"); err != nil {
		return nil, err
	}
	lines, err := c.multiline()
	if err != nil {
		return nil, err
	}
	out := make([]MessageUID, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("pop3: malformed UIDL line %q", line)
		}
		num, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("pop3: malformed message number in %q: %v", line, err)
		}
		out = append(out, MessageUID{Number: num, UID: fields[1]})
	}
	return out, nil
}

// Stat is the mailbox's message count and total size in octets.
type Stat struct {
	Count int
	Size  int
}

// Statistics issues STAT.
func (c *Client) Statistics() (Stat, error) {
	rest, err := c.command("STAT")
	if err != nil {
		return Stat{}, err
	}
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Stat{}, fmt.Errorf("pop3: malformed STAT reply %q", rest)
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil {
		return Stat{}, fmt.Errorf("pop3: malformed STAT count in %q: %v", rest, err)
	}
	size, err := strconv.Atoi(fields[1])
	if err != nil {
		return Stat{}, fmt.Errorf("pop3: malformed STAT size in %q: %v", rest, err)
	}
	return Stat{Count: count, Size: size}, nil
}

// fetch issues cmd and streams the dot-terminated body that follows, as
// raw CRLF-joined bytes ready for message.Parse.
func (c *Client) fetch(cmd string) ([]byte, error) {
	if _, err := c.command(cmd); err != nil {
		return nil, err
	}
	lines, err := c.multiline()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteString("\r\n")
	}
	return buf.Bytes(), nil
}

// Retr fetches message n in full and parses it with message.Parse,
// preserving internal blank lines the way Message.parse_by_line does.
func (c *Client) Retr(n int) (*message.Message, error) {
	data, err := c.fetch(fmt.Sprintf("RETR %d", n))
	if err != nil {
		return nil, err
	}
	return message.Parse(data, c.Policy, c.Strict, false)
}

// Top fetches only the header of message n (TOP n 0) and parses it.
func (c *Client) Top(n int) (*message.Message, error) {
	data, err := c.fetch(fmt.Sprintf("TOP %d 0", n))
	if err != nil {
		return nil, err
	}
	return message.Parse(data, c.Policy, c.Strict, false)
}

// Dele marks message n for deletion.
func (c *Client) Dele(n int) error {
	_, err := c.command(fmt.Sprintf("DELE %d", n))
	return err
}

// Quit sends QUIT and closes the connection.
func (c *Client) Quit() error {
	c.state = StateQuit
	c.command("QUIT") // intentionally ignore the reply; we're closing regardless
	return c.dialog.Close()
}
