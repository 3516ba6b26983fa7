package message

import (
	"bytes"

	"github.com/karastojko/mailio-sub000/charset"
	"github.com/karastojko/mailio-sub000/codec"
)

// FormatSubject renders cs for the Subject header: ASCII subjects emit
// raw, non-ASCII subjects emit one or more RFC 2047 Q-codec words,
// space-joined (EncodeHeaderLine folds them further if needed). The
// method (base64 vs quoted-printable) follows cs.CodecHint when it
// names one, defaulting to quoted-printable.
func FormatSubject(cs charset.CString, policy codec.Policy) []byte {
	if cs.Empty() {
		return nil
	}
	if cs.Charset == charset.ASCII {
		return cs.Bytes
	}
	method := codec.MethodQuotedPrintable
	if cs.CodecHint == charset.HintBase64 {
		method = codec.MethodBase64
	}
	words := codec.QCodec{First: policy, Lines: policy, Method: method}.Encode(cs)
	return bytes.Join(words, []byte(" "))
}

// ParseSubject decodes a raw Subject header value, resolving any
// embedded RFC 2047 encoded words via codec.CheckDecode.
func ParseSubject(value []byte) (charset.CString, error) {
	decoded, err := codec.CheckDecode(value)
	if err != nil {
		return charset.CString{}, err
	}
	return charset.New(decoded), nil
}
