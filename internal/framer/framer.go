package framer

import (
	"encoding/binary"
	"io"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/serde-go/internal/serializer"
	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/serde/bincodec"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// ProtocolVersion 为当前帧协议版本。
var ProtocolVersion = semver.MustParse("1.0.0")

// Envelope 为一帧的完整内容。
type Envelope struct {
	Header  Header
	Payload []byte
}

// Framer 抽象了基于 Envelope 的打包/解包能力。
//
// 一帧的格式为：4 字节大端长度 + 二进制编码的 Header + 载荷。
// 长度覆盖 Header 与载荷，Header.Size 为载荷字节数。
type Framer interface {
	WriteFrame(w io.Writer, env *Envelope) error

	// ReadFrame 读取一帧。流在帧边界处结束时返回 io.EOF。
	ReadFrame(r io.Reader) (*Envelope, error)
}

const (
	lengthPrefixSize = 4

	DefaultMaxFrameSize uint32 = 16 * 1024 * 1024 // 16MB
)

// LengthPrefixedFramer 使用 4 字节大端长度前缀作为帧边界，适用于基于流的连接。
type LengthPrefixedFramer struct {
	// MaxFrameSize 为允许的最大帧长度（不含前缀），0 表示 DefaultMaxFrameSize。
	MaxFrameSize uint32
}

var _ Framer = (*LengthPrefixedFramer)(nil)

func NewLengthPrefixedFramer(maxFrameSize uint32) *LengthPrefixedFramer {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &LengthPrefixedFramer{MaxFrameSize: maxFrameSize}
}

// WriteFrame 填写 Header.Size 后写出一帧。Header.Version 缺省时取 ProtocolVersion，
// Header.Format 缺省时取 serializer.KindBinary。
func (f *LengthPrefixedFramer) WriteFrame(w io.Writer, env *Envelope) error {
	if env == nil {
		return merr.WrapErrParameterInvalidMsg("framer: envelope is nil")
	}
	limit := f.effectiveMaxSize()
	if uint64(len(env.Payload)) > uint64(limit) {
		return merr.WrapErrFrameTooLarge(clampSize(len(env.Payload)), limit)
	}
	if env.Header.Version == "" {
		env.Header.Version = ProtocolVersion.String()
	}
	if env.Header.Format == 0 {
		env.Header.Format = serializer.KindBinary
	}
	env.Header.Size = uint32(len(env.Payload))

	header, err := bincodec.Marshal(&env.Header)
	if err != nil {
		return err
	}

	length := uint64(len(header)) + uint64(len(env.Payload))
	if length > uint64(limit) {
		return merr.WrapErrFrameTooLarge(clampSize(int(length)), limit)
	}

	frame := make([]byte, lengthPrefixSize, lengthPrefixSize+int(length))
	binary.BigEndian.PutUint32(frame, uint32(length))
	frame = append(frame, header...)
	frame = append(frame, env.Payload...)

	if n, err := w.Write(frame); err != nil {
		return merr.WrapErrIoFailed(int64(n), err)
	}
	return nil
}

func (f *LengthPrefixedFramer) ReadFrame(r io.Reader) (*Envelope, error) {
	var prefix [lengthPrefixSize]byte
	if n, err := io.ReadFull(r, prefix[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, merr.WrapErrIoFailed(int64(n), err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > f.effectiveMaxSize() {
		return nil, merr.WrapErrFrameTooLarge(length, f.effectiveMaxSize())
	}

	body := make([]byte, length)
	if n, err := io.ReadFull(r, body); err != nil {
		return nil, merr.WrapErrIoFailed(int64(lengthPrefixSize+n), err)
	}

	env := &Envelope{}
	d := bincodec.NewBytesDeserializer(body)
	if err := serde.DeserializeInto(d, &env.Header, HeaderBinding); err != nil {
		return nil, err
	}
	if err := CheckVersion(env.Header.Version); err != nil {
		return nil, err
	}
	if env.Header.Flags&^knownFlags != 0 {
		return nil, merr.WrapErrFrameFlags(env.Header.Flags, "unknown flag bits")
	}

	payload := body[d.Offset():]
	if uint64(len(payload)) != uint64(env.Header.Size) {
		return nil, merr.WrapErrParsing(lengthPrefixSize+d.Offset(), "payload size does not match header")
	}
	env.Payload = payload
	return env, nil
}

func (f *LengthPrefixedFramer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return DefaultMaxFrameSize
	}
	return f.MaxFrameSize
}

func clampSize(n int) uint32 {
	if uint64(n) > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

// CheckVersion 检查 version 与 ProtocolVersion 的主版本号是否一致。
func CheckVersion(version string) error {
	v, err := semver.Parse(version)
	if err != nil || v.Major != ProtocolVersion.Major {
		return merr.WrapErrFrameVersion(ProtocolVersion.String(), version)
	}
	return nil
}
