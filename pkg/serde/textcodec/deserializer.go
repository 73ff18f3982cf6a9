// Package textcodec 实现自描述的文本格式（JSON 子集，记录键为 "id:name"）。
package textcodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Deserializer 以单遍、按字节下标的递归下降方式解析文本输入。
// 每次 Deserialize 调用消费一个值，之后游标停在该值之后。
type Deserializer struct {
	input string
	pos   int
}

var _ serde.Deserializer = (*Deserializer)(nil)

func NewDeserializer(input string) *Deserializer {
	return &Deserializer{input: input}
}

// Offset 返回当前游标位置（字节）。
func (d *Deserializer) Offset() int {
	return d.pos
}

func (d *Deserializer) Deserialize(v serde.Visitor) error {
	return d.value(v)
}

// End 跳过空白并检查输入已被完全消费。
func (d *Deserializer) End() error {
	d.skipWhitespace()
	if d.pos < len(d.input) {
		return d.errorf("trailing characters after value")
	}
	return nil
}

func (d *Deserializer) errorf(format string, args ...any) error {
	return merr.WrapErrParsing(int64(d.pos), fmt.Sprintf(format, args...))
}

func (d *Deserializer) eof() error {
	return merr.WrapErrUnexpectedEOF(int64(d.pos))
}

func (d *Deserializer) skipWhitespace() {
	for d.pos < len(d.input) {
		switch d.input[d.pos] {
		case ' ', '\t', '\r', '\n':
			d.pos++
		default:
			return
		}
	}
}

// peek 跳过空白后返回下一个字节。
func (d *Deserializer) peek() (byte, bool) {
	d.skipWhitespace()
	if d.pos >= len(d.input) {
		return 0, false
	}
	return d.input[d.pos], true
}

func (d *Deserializer) value(v serde.Visitor) error {
	c, ok := d.peek()
	if !ok {
		return d.eof()
	}

	switch {
	case c == '-' || isDigit(c):
		return d.number(v)
	case c == 'n':
		if err := d.literal("null"); err != nil {
			return err
		}
		return v.VisitNull()
	case c == 't':
		if err := d.literal("true"); err != nil {
			return err
		}
		return v.VisitBool(true)
	case c == 'f':
		if err := d.literal("false"); err != nil {
			return err
		}
		return v.VisitBool(false)
	case c == '"':
		s, err := d.str()
		if err != nil {
			return err
		}
		return v.VisitStr(s)
	case c == '[':
		return d.seq(v)
	case c == '{':
		return d.record(v)
	default:
		return d.errorf("unexpected character %q", c)
	}
}

func (d *Deserializer) literal(word string) error {
	rest := d.input[d.pos:]
	if len(rest) < len(word) {
		if strings.HasPrefix(word, rest) {
			d.pos = len(d.input)
			return d.eof()
		}
		return d.errorf("invalid literal, expected %s", word)
	}
	if rest[:len(word)] != word {
		return d.errorf("invalid literal, expected %s", word)
	}
	if len(rest) > len(word) && isAlphanumeric(rest[len(word)]) {
		return d.errorf("invalid literal, expected %s", word)
	}
	d.pos += len(word)
	return nil
}

// number 解析数值。带小数部分或指数的为浮点数，其余为整数：
// 非负且不超过 MaxInt64 的走 VisitSigned，更大的走 VisitUnsigned。
// 整数部分超出 64 位累加器时，无论后面是否有小数部分都报告数值类型不兼容。
func (d *Deserializer) number(v serde.Visitor) error {
	start := d.pos
	neg := false
	if d.input[d.pos] == '-' {
		neg = true
		d.pos++
	}

	var (
		mag      uint64
		overflow bool
		digits   int
	)
	for d.pos < len(d.input) && isDigit(d.input[d.pos]) {
		digit := uint64(d.input[d.pos] - '0')
		if mag > (math.MaxUint64-digit)/10 {
			overflow = true
		} else {
			mag = mag*10 + digit
		}
		digits++
		d.pos++
	}
	if digits == 0 {
		if d.pos >= len(d.input) {
			return d.eof()
		}
		return d.errorf("expected digit")
	}

	isFloat := false
	if d.pos < len(d.input) && d.input[d.pos] == '.' {
		isFloat = true
		d.pos++
		if err := d.digits(); err != nil {
			return err
		}
	}
	if d.pos < len(d.input) && (d.input[d.pos] == 'e' || d.input[d.pos] == 'E') {
		isFloat = true
		d.pos++
		if d.pos < len(d.input) && (d.input[d.pos] == '+' || d.input[d.pos] == '-') {
			d.pos++
		}
		if err := d.digits(); err != nil {
			return err
		}
	}

	text := d.input[start:d.pos]
	if overflow {
		return merr.WrapErrIncompatibleNumericType("int64", text)
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return merr.WrapErrIncompatibleNumericType("float64", text)
			}
			return merr.WrapErrParsing(int64(start), err.Error())
		}
		return v.VisitFloat(f)
	}

	if neg {
		if mag > 1<<63 {
			return merr.WrapErrIncompatibleNumericType("int64", text)
		}
		return v.VisitSigned(int64(-mag))
	}
	if mag <= math.MaxInt64 {
		return v.VisitSigned(int64(mag))
	}
	return v.VisitUnsigned(mag)
}

func (d *Deserializer) digits() error {
	n := 0
	for d.pos < len(d.input) && isDigit(d.input[d.pos]) {
		d.pos++
		n++
	}
	if n == 0 {
		if d.pos >= len(d.input) {
			return d.eof()
		}
		return d.errorf("expected digit")
	}
	return nil
}

// str 解析一个带引号的字符串。不含转义的字符串直接切片返回，不做拷贝。
func (d *Deserializer) str() (string, error) {
	d.pos++ // 跳过开头的 "
	start := d.pos
	for d.pos < len(d.input) {
		switch d.input[d.pos] {
		case '"':
			s := d.input[start:d.pos]
			d.pos++
			return s, nil
		case '\\':
			return d.escapedStr(start)
		default:
			d.pos++
		}
	}
	return "", d.eof()
}

func (d *Deserializer) escapedStr(start int) (string, error) {
	var sb strings.Builder
	sb.Grow(d.pos - start + 16)
	sb.WriteString(d.input[start:d.pos])

	for d.pos < len(d.input) {
		c := d.input[d.pos]
		if c == '"' {
			d.pos++
			return sb.String(), nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			d.pos++
			continue
		}

		d.pos++
		if d.pos >= len(d.input) {
			return "", d.eof()
		}
		esc := d.input[d.pos]
		d.pos++
		switch esc {
		case '"', '\\', '/':
			sb.WriteByte(esc)
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			r, err := d.hex4()
			if err != nil {
				return "", err
			}
			if utf16.IsSurrogate(r) {
				r = d.lowSurrogate(r)
			}
			sb.WriteRune(r)
		default:
			d.pos--
			return "", d.errorf("invalid escape character %q", esc)
		}
	}
	return "", d.eof()
}

func (d *Deserializer) hex4() (rune, error) {
	if d.pos+4 > len(d.input) {
		d.pos = len(d.input)
		return 0, d.eof()
	}
	n, err := strconv.ParseUint(d.input[d.pos:d.pos+4], 16, 32)
	if err != nil {
		return 0, d.errorf("invalid unicode escape %q", d.input[d.pos:d.pos+4])
	}
	d.pos += 4
	return rune(n), nil
}

// lowSurrogate 尝试读取紧随其后的低位代理并组合；无法组合时返回 U+FFFD。
func (d *Deserializer) lowSurrogate(high rune) rune {
	if d.pos+6 > len(d.input) || d.input[d.pos] != '\\' || d.input[d.pos+1] != 'u' {
		return utf8.RuneError
	}
	n, err := strconv.ParseUint(d.input[d.pos+2:d.pos+6], 16, 32)
	if err != nil {
		return utf8.RuneError
	}
	r := utf16.DecodeRune(high, rune(n))
	if r == utf8.RuneError {
		return r
	}
	d.pos += 6
	return r
}

func (d *Deserializer) seq(v serde.Visitor) error {
	d.pos++ // 跳过 [
	b, err := v.VisitSeq(-1)
	if err != nil {
		return err
	}
	for {
		c, ok := d.peek()
		if !ok {
			return d.eof()
		}
		if c == ']' {
			d.pos++
			return b.Finish()
		}

		ev, err := b.Element()
		if err != nil {
			return err
		}
		if err := d.value(ev); err != nil {
			return err
		}

		c, ok = d.peek()
		if !ok {
			return d.eof()
		}
		switch c {
		case ',':
			d.pos++
		case ']':
			d.pos++
			return b.Finish()
		default:
			return d.errorf("expected ',' or ']' in sequence, found %q", c)
		}
	}
}

func (d *Deserializer) record(v serde.Visitor) error {
	d.pos++ // 跳过 {
	b, err := v.VisitStruct()
	if err != nil {
		return err
	}
	for {
		c, ok := d.peek()
		if !ok {
			return d.eof()
		}
		if c == '}' {
			d.pos++
			return b.Finish()
		}
		if c != '"' {
			return d.errorf("expected '\"' to start member key, found %q", c)
		}

		key, err := d.str()
		if err != nil {
			return err
		}
		c, ok = d.peek()
		if !ok {
			return d.eof()
		}
		if c != ':' {
			return d.errorf("expected ':' after member key, found %q", c)
		}
		d.pos++

		mv, err := b.Member(serde.ParseKey(key))
		if err != nil {
			return err
		}
		if err := d.value(mv); err != nil {
			return err
		}

		c, ok = d.peek()
		if !ok {
			return d.eof()
		}
		switch c {
		case ',':
			d.pos++
		case '}':
			d.pos++
			return b.Finish()
		default:
			return d.errorf("expected ',' or '}' in record, found %q", c)
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlphanumeric(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
