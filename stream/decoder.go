package stream

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// decoder turns a sequence of byte chunks into text, carrying an incomplete
// trailing UTF-8 sequence over to the next chunk.
type decoder struct {
	carry []byte
}

func (d *decoder) decode(p []byte) string {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
	}

	cut := incompleteTail(data)
	d.carry = bytes.Clone(data[cut:])
	return strings.ToValidUTF8(string(data[:cut]), string(utf8.RuneError))
}

// flush returns the replacement character for any bytes still carried.
func (d *decoder) flush() string {
	if len(d.carry) == 0 {
		return ""
	}
	d.carry = nil
	return string(utf8.RuneError)
}

// incompleteTail returns the offset where a truncated rune begins, or len(b).
func incompleteTail(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return i
		}
		break
	}
	return len(b)
}
