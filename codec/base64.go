package codec

const base64Charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Rev [256]int8

func init() {
	for i := range base64Rev {
		base64Rev[i] = -1
	}
	for i := 0; i < len(base64Charset); i++ {
		base64Rev[base64Charset[i]] = int8(i)
	}
}

// Base64 implements RFC 2045 §6.8 base64 content transfer encoding.
type Base64 struct {
	First    Policy
	Lines    Policy
	Reserved int
}

// Encode splits data into 3-octet groups, each mapped to 4 base64
// characters padded with '=', then wraps the result so every produced
// line stays inside policy without ever splitting a 4-character group.
func (c Base64) Encode(data []byte) [][]byte {
	out := make([]byte, 0, (len(data)+2)/3*4)
	for i := 0; i < len(data); i += 3 {
		var group [3]byte
		n := copy(group[:], data[i:])
		out = append(out,
			base64Charset[group[0]>>2],
			base64Charset[(group[0]&0x03)<<4|group[1]>>4],
		)
		if n > 1 {
			out = append(out, base64Charset[(group[1]&0x0F)<<2|group[2]>>6])
		} else {
			out = append(out, '=')
		}
		if n > 2 {
			out = append(out, base64Charset[group[2]&0x3F])
		} else {
			out = append(out, '=')
		}
	}
	first := int(c.First) - c.Reserved
	if first < 4 {
		first = 4
	}
	return splitFixed(out, Policy(first), c.Lines, 4)
}

// Decode concatenates lines and reverses Encode. '=' is treated purely
// as a trailing pad marker; any other character outside the base64
// alphabet is an error.
func (c Base64) Decode(lines [][]byte) ([]byte, error) {
	joined := joinLines(lines)
	var group [4]int8
	gi := 0
	pad := 0
	out := make([]byte, 0, len(joined)/4*3)
	flush := func() error {
		if gi == 0 {
			return nil
		}
		if gi < 2 {
			return errf("base64", "incomplete group")
		}
		for gi < 4 {
			group[gi] = 0
			gi++
		}
		out = append(out, byte(group[0])<<2|byte(group[1])>>4)
		if pad < 2 {
			out = append(out, byte(group[1])<<4|byte(group[2])>>2)
		}
		if pad < 1 {
			out = append(out, byte(group[2])<<6|byte(group[3]))
		}
		gi = 0
		pad = 0
		return nil
	}
	for _, ln := range joined {
		if ln == '\r' || ln == '\n' {
			continue
		}
		if ln == '=' {
			if gi == 0 {
				continue
			}
			group[gi] = 0
			gi++
			pad++
			if gi == 4 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			continue
		}
		v := base64Rev[ln]
		if v < 0 {
			return nil, errf("base64", "bad character %q", ln)
		}
		group[gi] = v
		gi++
		if gi == 4 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
