package message

import (
	"strings"

	"github.com/karastojko/mailio-sub000/address"
	"github.com/karastojko/mailio-sub000/codec"
	"github.com/karastojko/mailio-sub000/mimepart"
)

// Parse decodes data into a Message: mimepart.Parse builds the MIME part
// tree, then every envelope header it left in OtherHeaders (From,
// Sender, Reply-To, To, Cc, Bcc, Subject, Date, MIME-Version) is pulled
// out and assigned to the matching Message field. In strict mode a
// malformed envelope header fails the parse; otherwise it is left
// untouched in OtherHeaders.
func Parse(data []byte, policy codec.Policy, strict, dotEscape bool) (*Message, error) {
	part, err := mimepart.Parse(data, policy, strict, dotEscape)
	if err != nil {
		return nil, err
	}
	m := &Message{Part: part}

	var rest []mimepart.RawHeader
	for _, h := range part.OtherHeaders {
		handled, err := m.assignEnvelopeHeader(h.Name, h.Value, strict)
		if err != nil {
			return nil, err
		}
		if !handled {
			rest = append(rest, h)
		}
	}
	part.OtherHeaders = rest
	return m, nil
}

// assignEnvelopeHeader reports whether name is a recognized envelope
// header. When it is, value is parsed and assigned; a parse failure is
// returned as an error in strict mode, and otherwise leaves the field
// unset (the header itself is still consumed — a malformed envelope
// header is not useful as a generic OtherHeaders entry either).
func (m *Message) assignEnvelopeHeader(name string, value []byte, strict bool) (bool, error) {
	switch strings.ToLower(name) {
	case "from":
		mb, err := address.ParseMailboxes(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.From = mb
	case "sender":
		a, err := address.ParseAddress(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.Sender = a
	case "reply-to":
		a, err := address.ParseAddress(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.ReplyTo = a
	case "to":
		mb, err := address.ParseMailboxes(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.To = mb
	case "cc":
		mb, err := address.ParseMailboxes(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.Cc = mb
	case "bcc":
		mb, err := address.ParseMailboxes(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.Bcc = mb
	case "subject":
		cs, err := ParseSubject(value)
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.Subject = cs
	case "date":
		t, err := ParseDate(string(value))
		if err != nil {
			if strict {
				return true, err
			}
			return true, nil
		}
		m.Date = t
	case "mime-version":
		m.Part.VersionToken = string(value)
	default:
		return false, nil
	}
	return true, nil
}
