package serializer

import (
	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Kind 标识帧载荷使用的格式，写入帧头。
type Kind uint32

const (
	KindBinary Kind = iota + 1
	KindText
	KindTextPretty
)

var KindTable = serde.MustEnumTable("Format",
	serde.Variant[Kind]{ID: uint32(KindBinary), Name: "binary", Value: KindBinary},
	serde.Variant[Kind]{ID: uint32(KindText), Name: "text", Value: KindText},
	serde.Variant[Kind]{ID: uint32(KindTextPretty), Name: "text-pretty", Value: KindTextPretty},
)

func (k Kind) Serialize(s serde.Serializer) error {
	return KindTable.Serialize(k).Serialize(s)
}

func (k Kind) String() string {
	if name, ok := KindTable.NameOf(k); ok {
		return name
	}
	return "unknown"
}

// Serializer 抽象了“值 <-> 字节流”的序列化能力。
//
// 写出方向接收 serde.Serialize，读入方向把解码结果推送给 serde.Visitor，
// 因此同一份绑定可以在任意格式之间复用。
type Serializer interface {
	Kind() Kind

	Marshal(v serde.Serialize) ([]byte, error)

	// Unmarshal 将 data 中恰好一个值推送给 v。
	Unmarshal(data []byte, v serde.Visitor) error
}

// Unmarshal 通过 s 将 data 解码为 T。
func Unmarshal[T any](s Serializer, data []byte, b serde.Binding[T]) (T, error) {
	var out T
	err := serde.DeserializeInto(serde.DeserializerFunc(func(v serde.Visitor) error {
		return s.Unmarshal(data, v)
	}), &out, b)
	return out, err
}

// New 返回 kind 对应的实现。
func New(kind Kind) (Serializer, error) {
	switch kind {
	case KindBinary:
		return BinarySerializer{}, nil
	case KindText:
		return TextSerializer{}, nil
	case KindTextPretty:
		return TextSerializer{Pretty: true}, nil
	default:
		return nil, merr.WrapErrFrameFormat(uint32(kind))
	}
}

// ByName 按格式名（binary、text、text-pretty）或 "id:name" 查找实现。
func ByName(name string) (Serializer, error) {
	kind, ok := KindTable.Lookup(serde.ParseKey(name))
	if !ok {
		return nil, merr.WrapErrFrameFormat(name)
	}
	return New(kind)
}
