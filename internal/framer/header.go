package framer

import (
	"github.com/lk2023060901/serde-go/internal/serializer"
	"github.com/lk2023060901/serde-go/pkg/serde"
)

const (
	// FlagCompressed 表示载荷已压缩。
	FlagCompressed uint64 = 1 << iota
	// FlagEncrypted 表示载荷已加密。
	FlagEncrypted

	knownFlags = FlagCompressed | FlagEncrypted
)

// Header 为帧头，使用二进制格式编码在载荷之前。
type Header struct {
	// Version 为协议版本（semver），主版本号不同的帧不能互通。
	Version   string
	Format    serializer.Kind
	Flags     uint64
	Seq       uint64
	Timestamp int64
	// Size 为载荷字节数，由 WriteFrame 填写。
	Size uint32
}

var HeaderFields = serde.MustFields("Header",
	serde.Field{ID: 1, Name: "version"},
	serde.Field{ID: 2, Name: "format"},
	serde.Field{ID: 3, Name: "flags"},
	serde.Field{ID: 4, Name: "seq"},
	serde.Field{ID: 5, Name: "timestamp"},
	serde.Field{ID: 6, Name: "size"},
)

func (h *Header) Serialize(s serde.Serializer) error {
	return serde.SerializeRecord(s, HeaderFields,
		serde.Str(h.Version),
		h.Format,
		serde.Uint(h.Flags),
		serde.Uint(h.Seq),
		serde.Int(h.Timestamp),
		serde.Uint(h.Size),
	)
}

func HeaderBinding(p *serde.Place[Header]) serde.Visitor {
	return serde.NewRecordVisitor("Header", func() *serde.RecordBuilder {
		out := p.Ptr()
		*out = Header{}
		return serde.NewRecordBuilder(HeaderFields, p.Commit,
			serde.SlotOf(&out.Version, serde.StringBinding),
			serde.SlotOf(&out.Format, serializer.KindTable.Binding()),
			serde.SlotOf(&out.Flags, serde.UintBinding[uint64]),
			serde.SlotOf(&out.Seq, serde.UintBinding[uint64]),
			serde.SlotOf(&out.Timestamp, serde.IntBinding[int64]),
			serde.SlotOf(&out.Size, serde.UintBinding[uint32]),
		)
	})
}
