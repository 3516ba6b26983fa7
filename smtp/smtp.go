// Package smtp implements an SMTP submission client state machine on top
// of dialog.Dialog: greeting, EHLO/HELO, AUTH LOGIN, STARTTLS, and
// MAIL/RCPT/DATA submission of a message.Message.
//
// Grounded on smtp/smtpserver/smtpserver.go read from the server side
// (banner/reply line shape, 2xx/3xx/4xx/5xx status codes) and inverted
// for the client, and on the SMTP submission sequence in
// original_source/include/mailio/smtp.hpp.
package smtp

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/karastojko/mailio-sub000/address"
	"github.com/karastojko/mailio-sub000/dialog"
	"github.com/karastojko/mailio-sub000/message"
)

// State is a position in the client's submission state machine.
type State int

const (
	StateDisconnected State = iota
	StateGreeted
	StateHelloDone
	StateAuthenticated
	StateIdle
	StateSubmitting
	StateQuit
)

// AuthMethod selects how Authenticate proves identity after EHLO/HELO.
type AuthMethod int

const (
	// AuthNone skips authentication entirely (the common case for a
	// trusted submission relay that doesn't require it).
	AuthNone AuthMethod = iota
	AuthLogin
)

// Category classifies a reply by its leading status digit.
type Category int

const (
	CategoryPositiveCompletion Category = iota // 2xx
	CategoryPositiveIntermediate               // 3xx
	CategoryTransient                          // 4xx
	CategoryPermanent                          // 5xx
)

func categoryOf(code int) Category {
	switch code / 100 {
	case 2:
		return CategoryPositiveCompletion
	case 3:
		return CategoryPositiveIntermediate
	case 4:
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// Error is a rejection by the server: a reply whose status code did not
// meet the command's requirement.
type Error struct {
	Code     int
	Category Category
	Text     string // the last line's content
}

func (e *Error) Error() string { return fmt.Sprintf("smtp: %d %s", e.Code, e.Text) }

// Client is an SMTP submission session.
type Client struct {
	dialog    *dialog.Dialog
	state     State
	localHost string
}

// Connect opens a dialog to host:port and captures the local hostname;
// the session starts in StateDisconnected until Authenticate reads the
// banner and completes EHLO/HELO.
func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	d, err := dialog.Connect(host, port, timeout)
	if err != nil {
		return nil, err
	}
	localHost, err := os.Hostname()
	if err != nil {
		localHost = "localhost"
	}
	return &Client{dialog: d, localHost: localHost, state: StateDisconnected}, nil
}

// SetTrace installs a "C: "/"S: " trace writer on the underlying dialog.
func (c *Client) SetTrace(w io.Writer) {
	c.dialog.SetTrace(w)
}

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func (c *Client) State() State { return c.state }

// Close closes the underlying dialog.
func (c *Client) Close() error { return c.dialog.Close() }

// readBanner reads banner lines until one whose 4th character is a
// space (the final line of a possibly multi-line reply); the banner
// must report code 220.
func (c *Client) readBanner() error {
	code, text, err := c.readReply()
	if err != nil {
		return err
	}
	if code != 220 {
		return &Error{Code: code, Category: categoryOf(code), Text: text}
	}
	c.state = StateGreeted
	return nil
}

// readReply reads a (possibly multi-line) reply and returns the status
// code and the last line's text.
func (c *Client) readReply() (code int, text string, err error) {
	for {
		line, err := c.dialog.Receive()
		if err != nil {
			return 0, "", err
		}
		if len(line) < 4 {
			return 0, "", fmt.Errorf("smtp: malformed reply line %q", line)
		}
		if _, err := fmt.Sscanf(line[:3], "%d", &code); err != nil {
			return 0, "", fmt.Errorf("smtp: malformed status code in %q: %v", line, err)
		}
		text = line[4:]
		if line[3] == ' ' {
			return code, text, nil
		}
		// line[3] == '-': more lines follow.
	}
}

// expect reads a reply and requires its code fall within want's
// category (the first digit); otherwise it returns an *Error.
func expectCategory(c *Client, want Category) (code int, text string, err error) {
	code, text, err = c.readReply()
	if err != nil {
		return 0, "", err
	}
	if categoryOf(code) != want {
		return code, text, &Error{Code: code, Category: categoryOf(code), Text: text}
	}
	return code, text, nil
}

// helloOnce sends EHLO <localHost> and falls back to HELO on a
// non-2xx reply, per RFC 5321 §4.1.1.1.
func (c *Client) helloOnce() error {
	if err := c.dialog.Send("EHLO " + c.localHost); err != nil {
		return err
	}
	_, _, err := expectCategory(c, CategoryPositiveCompletion)
	if err == nil {
		c.state = StateHelloDone
		return nil
	}
	if err := c.dialog.Send("HELO " + c.localHost); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveCompletion); err != nil {
		return err
	}
	c.state = StateHelloDone
	return nil
}

// Authenticate reads the server banner, performs EHLO (falling back to
// HELO), and if method is AuthLogin carries out AUTH LOGIN with user
// and pass base64-encoded.
func (c *Client) Authenticate(user, pass string, method AuthMethod) error {
	if err := c.readBanner(); err != nil {
		return err
	}
	if err := c.helloOnce(); err != nil {
		return err
	}
	if method == AuthNone {
		c.state = StateIdle
		return nil
	}
	if err := c.dialog.Send("AUTH LOGIN"); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveIntermediate); err != nil {
		return err
	}
	if err := c.dialog.Send(base64Encode(user)); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveIntermediate); err != nil {
		return err
	}
	if err := c.dialog.Send(base64Encode(pass)); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveCompletion); err != nil {
		return err
	}
	c.state = StateIdle
	return nil
}

// StartTLS sends STARTTLS, expects 220, performs the in-place TLS
// handshake, and re-issues EHLO (the post-upgrade EHLO is mandatory:
// a passive attacker could have altered the plaintext EHLO response).
func (c *Client) StartTLS(cfg *tls.Config) error {
	if err := c.dialog.Send("STARTTLS"); err != nil {
		return err
	}
	code, text, err := c.readReply()
	if err != nil {
		return err
	}
	if code != 220 {
		return &Error{Code: code, Category: categoryOf(code), Text: text}
	}
	if err := c.dialog.UpgradeTLS(cfg); err != nil {
		return err
	}
	return c.helloOnce()
}

// Submit sends MAIL FROM, RCPT TO for every recipient across To/Cc/Bcc
// (addresses and groups), DATA, then the formatted message body with
// dot-escaping, per spec §4.7.
func (c *Client) Submit(m *message.Message) error {
	c.state = StateSubmitting
	defer func() {
		if c.state == StateSubmitting {
			c.state = StateIdle
		}
	}()

	sender := m.Sender.Addr
	if sender == "" && len(m.From.Addresses) > 0 {
		sender = m.From.Addresses[0].Addr
	}
	if err := c.dialog.Send("MAIL FROM: <" + sender + ">"); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveCompletion); err != nil {
		return err
	}

	for _, recipient := range recipients(m) {
		if err := c.dialog.Send("RCPT TO: <" + recipient + ">"); err != nil {
			return err
		}
		if _, _, err := expectCategory(c, CategoryPositiveCompletion); err != nil {
			return err
		}
	}

	if err := c.dialog.Send("DATA"); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveIntermediate); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := m.Format(&buf, true); err != nil {
		return err
	}
	buf.WriteString(".\r\n")
	if err := c.dialog.SendRaw(buf.Bytes()); err != nil {
		return err
	}
	if _, _, err := expectCategory(c, CategoryPositiveCompletion); err != nil {
		return err
	}
	return nil
}

// recipients collects every address-or-group-name destined for RCPT TO,
// across To, Cc and Bcc.
func recipients(m *message.Message) []string {
	var out []string
	for _, list := range []address.Mailboxes{m.To, m.Cc, m.Bcc} {
		for _, a := range list.Addresses {
			out = append(out, a.Addr)
		}
		for _, g := range list.Groups {
			out = append(out, g.Name)
		}
	}
	return out
}
