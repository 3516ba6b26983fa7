// Package message implements the email message envelope: a mimepart.Part
// specialized with From/Sender/Reply-To/To/Cc/Bcc, Subject and Date
// (spec §4.5). Grounded on email/message.go's Msg-extends-mime pattern
// and, for header write order, original_source/src/message.cpp's
// format_header (From, Reply-To, To, Cc, Bcc, Date, MIME-Version, the
// MIME headers, Subject, blank line).
package message

import (
	"bytes"
	"fmt"
	"time"

	"github.com/karastojko/mailio-sub000/address"
	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
	"github.com/karastojko/mailio-sub000/mimepart"
)

// Message is a MIME part with an envelope: the headers a mail transport
// (SMTP/POP3/IMAP) cares about, layered on top of the generic MIME tree.
type Message struct {
	*mimepart.Part

	From    address.Mailboxes
	Sender  address.Address
	ReplyTo address.Address
	To      address.Mailboxes
	Cc      address.Mailboxes
	Bcc     address.Mailboxes
	Subject charset.CString
	Date    time.Time
}

// New returns an empty Message with a fresh mimepart.Part.
func New() *Message {
	return &Message{Part: mimepart.New()}
}

// SetFrom replaces the From mailbox list with a single address.
func (m *Message) SetFrom(a address.Address) { m.From = address.Mailboxes{Addresses: []address.Address{a}} }

// AddFrom appends a to the From mailbox list.
func (m *Message) AddFrom(a address.Address) { m.From.Add(a) }

// SetTo replaces the To mailbox list with a single address.
func (m *Message) SetTo(a address.Address) { m.To = address.Mailboxes{Addresses: []address.Address{a}} }

// AddTo appends a to the To mailbox list.
func (m *Message) AddTo(a address.Address) { m.To.Add(a) }

// SetCc replaces the Cc mailbox list with a single address.
func (m *Message) SetCc(a address.Address) { m.Cc = address.Mailboxes{Addresses: []address.Address{a}} }

// AddCc appends a to the Cc mailbox list.
func (m *Message) AddCc(a address.Address) { m.Cc.Add(a) }

// SetBcc replaces the Bcc mailbox list with a single address.
func (m *Message) SetBcc(a address.Address) { m.Bcc = address.Mailboxes{Addresses: []address.Address{a}} }

// AddBcc appends a to the Bcc mailbox list.
func (m *Message) AddBcc(a address.Address) { m.Bcc.Add(a) }

// Format renders the full message: envelope headers, the underlying
// MIME part's headers, Subject, a blank line, then body/children.
// dotEscape, when true, SMTP dot-stuffs body lines (RFC 5321 §4.5.2).
func (m *Message) Format(out *bytes.Buffer, dotEscape bool) error {
	if m.Part.IsMultipart() && m.Part.Boundary == "" {
		return fmt.Errorf("message: multipart message has no boundary")
	}
	policy := m.linePolicy()

	if err := m.writeAddressHeader(out, "From", m.From, policy); err != nil {
		return err
	}
	if !m.Sender.Empty() {
		if _, err := mimepart.EncodeHeaderLine(out, "Sender", []byte(address.Format(m.Sender)), policy); err != nil {
			return err
		}
	}
	if !m.ReplyTo.Empty() {
		if _, err := mimepart.EncodeHeaderLine(out, "Reply-To", []byte(address.Format(m.ReplyTo)), policy); err != nil {
			return err
		}
	}
	if err := m.writeAddressHeader(out, "To", m.To, policy); err != nil {
		return err
	}
	if !m.Cc.Empty() {
		if err := m.writeAddressHeader(out, "Cc", m.Cc, policy); err != nil {
			return err
		}
	}
	if !m.Bcc.Empty() {
		if err := m.writeAddressHeader(out, "Bcc", m.Bcc, policy); err != nil {
			return err
		}
	}
	if !m.Date.IsZero() {
		if _, err := mimepart.EncodeHeaderLine(out, "Date", []byte(FormatDate(m.Date)), policy); err != nil {
			return err
		}
	}
	if m.Part.IsMultipart() {
		version := m.Part.VersionToken
		if version == "" {
			version = "1.0"
		}
		if _, err := mimepart.EncodeHeaderLine(out, "MIME-Version", []byte(version), policy); err != nil {
			return err
		}
	}
	if err := m.Part.FormatHeaders(out); err != nil {
		return err
	}
	if !m.Subject.Empty() {
		if _, err := mimepart.EncodeHeaderLine(out, "Subject", FormatSubject(m.Subject, policy), policy); err != nil {
			return err
		}
	}
	return m.Part.FormatBodyAndChildren(out, dotEscape)
}

func (m *Message) writeAddressHeader(out *bytes.Buffer, name string, mb address.Mailboxes, policy codec.Policy) error {
	if mb.Empty() {
		return nil
	}
	_, err := mimepart.EncodeHeaderLine(out, name, []byte(address.FormatList(mb)), policy)
	return err
}

func (m *Message) linePolicy() codec.Policy {
	if m.Part.Policy == 0 {
		return codec.Recommended
	}
	return m.Part.Policy
}
