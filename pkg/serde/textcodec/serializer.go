package textcodec

import (
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

const (
	defaultIndent = 4
	// flushThreshold 缓冲超过该大小时写出到底层 writer。
	flushThreshold = 4096
)

// streamConfigs 按缩进宽度缓存冻结后的 jsoniter 配置，0 为紧凑模式。
var streamConfigs sync.Map

func streamConfig(indent int) jsoniter.API {
	if cfg, ok := streamConfigs.Load(indent); ok {
		return cfg.(jsoniter.API)
	}
	cfg, _ := streamConfigs.LoadOrStore(indent, jsoniter.Config{IndentionStep: indent}.Froze())
	return cfg.(jsoniter.API)
}

type Option func(*Serializer)

// WithPretty 开启多行输出，每层缩进 4 个空格。
func WithPretty() Option {
	return WithIndent(defaultIndent)
}

// WithIndent 开启多行输出并指定每层缩进的空格数，spaces <= 0 时保持紧凑输出。
func WithIndent(spaces int) Option {
	return func(s *Serializer) {
		if spaces > 0 {
			s.indent = spaces
		}
	}
}

// Serializer 输出文本格式，底层由 jsoniter.Stream 负责缓冲、转义与缩进。
//
// 记录键写为 "id:name"，枚举写为字符串 "id:name"；分隔符只出现在元素之间，
// 因此紧凑模式的输出是严格的 JSON。
type Serializer struct {
	w       io.Writer
	stream  *jsoniter.Stream
	indent  int
	written int64
	// levels 记录每一层聚合的括号以及是否已写出元素；空聚合在结束时整体写为 [] 或 {}。
	levels []level
}

type level struct {
	record  bool
	started bool
}

var _ serde.Serializer = (*Serializer)(nil)

// NewSerializer 创建写入 w 的 Serializer。w 为 nil 时输出保留在内部缓冲中，通过 Bytes 获取。
func NewSerializer(w io.Writer, opts ...Option) *Serializer {
	s := &Serializer{w: w}
	for _, opt := range opts {
		opt(s)
	}
	s.stream = jsoniter.NewStream(streamConfig(s.indent), w, 512)
	return s
}

// Bytes 返回尚未写出的缓冲内容。
func (s *Serializer) Bytes() []byte {
	return s.stream.Buffer()
}

// Flush 将缓冲写出到底层 writer。
func (s *Serializer) Flush() error {
	if s.w == nil || s.stream.Buffered() == 0 {
		return nil
	}
	n := s.stream.Buffered()
	if err := s.stream.Flush(); err != nil {
		return merr.WrapErrIoFailed(s.written, err)
	}
	s.written += int64(n)
	return nil
}

// done 在一个顶层值写完或缓冲过大时写出。
func (s *Serializer) done() error {
	if len(s.levels) == 0 || s.stream.Buffered() >= flushThreshold {
		return s.Flush()
	}
	return nil
}

// separate 在当前层写出第一个元素前打开括号，之后的元素前写逗号。
func (s *Serializer) separate() {
	top := &s.levels[len(s.levels)-1]
	switch {
	case top.started:
		s.stream.WriteMore()
	case top.record:
		s.stream.WriteObjectStart()
	default:
		s.stream.WriteArrayStart()
	}
	top.started = true
}

func (s *Serializer) close(record bool) error {
	if len(s.levels) == 0 || s.levels[len(s.levels)-1].record != record {
		return merr.WrapErrSerialize("unbalanced aggregate end")
	}
	top := s.levels[len(s.levels)-1]
	s.levels = s.levels[:len(s.levels)-1]
	switch {
	case !top.started && record:
		s.stream.WriteEmptyObject()
	case !top.started:
		s.stream.WriteEmptyArray()
	case record:
		s.stream.WriteObjectEnd()
	default:
		s.stream.WriteArrayEnd()
	}
	return s.done()
}

func (s *Serializer) SerializeNull() error {
	s.stream.WriteNil()
	return s.done()
}

func (s *Serializer) SerializeBool(v bool) error {
	s.stream.WriteBool(v)
	return s.done()
}

func (s *Serializer) SerializeSigned(v int64) error {
	s.stream.WriteInt64(v)
	return s.done()
}

func (s *Serializer) SerializeUnsigned(v uint64) error {
	s.stream.WriteUint64(v)
	return s.done()
}

// SerializeFloat 使用最短的可往返表示；整数值的浮点数带上 ".0"，保证读回时仍是浮点。
// jsoniter 的 WriteFloat64 对 1e21 以下的值使用定点形式且不带小数部分，读回时会变成整数，这里不用它。
func (s *Serializer) SerializeFloat(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return merr.WrapErrSerialize("float is not representable in text", strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf := s.stream.Buffer()
	start := len(buf)
	buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	if !strings.ContainsAny(string(buf[start:]), ".eE") {
		buf = append(buf, ".0"...)
	}
	s.stream.SetBuffer(buf)
	return s.done()
}

func (s *Serializer) SerializeStr(v string) error {
	s.stream.WriteString(validUTF8(v))
	return s.done()
}

func (s *Serializer) SerializeEnum(id uint32, name string) error {
	s.stream.WriteString(compositeKey(id, name))
	return s.done()
}

func (s *Serializer) StartStruct(int) error {
	s.levels = append(s.levels, level{record: true})
	return nil
}

func (s *Serializer) SerializeStructField(id uint32, name string, v serde.Serialize) error {
	if len(s.levels) == 0 || !s.levels[len(s.levels)-1].record {
		return merr.WrapErrSerialize("struct field outside of struct")
	}
	s.separate()
	s.stream.WriteObjectField(compositeKey(id, name))
	return v.Serialize(s)
}

func (s *Serializer) EndStruct() error {
	return s.close(true)
}

func (s *Serializer) StartSeq(int) error {
	s.levels = append(s.levels, level{})
	return nil
}

func (s *Serializer) SerializeSeqElmt(v serde.Serialize) error {
	if len(s.levels) == 0 || s.levels[len(s.levels)-1].record {
		return merr.WrapErrSerialize("sequence element outside of sequence")
	}
	s.separate()
	return v.Serialize(s)
}

func (s *Serializer) EndSeq() error {
	return s.close(false)
}

// compositeKey 返回 "id:name"，name 为空时只有 id。
func compositeKey(id uint32, name string) string {
	key := strconv.FormatUint(uint64(id), 10)
	if name == "" {
		return key
	}
	return key + ":" + validUTF8(name)
}

// validUTF8 将每段连续的非法 UTF-8 字节替换为一个 U+FFFD，jsoniter 会原样写出非法字节。
func validUTF8(v string) string {
	if utf8.ValidString(v) {
		return v
	}
	return strings.ToValidUTF8(v, "\uFFFD")
}
