package serde

import (
	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Serializer 是序列化的输出端（sink）。
//
// 约定：
//   - 整数统一以 64 位有符号/无符号形式传入，浮点数统一以 64 位传入，
//     由具体实现负责选择线上的表示宽度。
//   - StartStruct/EndStruct 与 StartSeq/EndSeq 必须成对出现。
//   - 任意一次调用失败都会中止整个序列化过程，已写出的部分不做回滚。
type Serializer interface {
	SerializeNull() error
	SerializeBool(v bool) error
	SerializeSigned(v int64) error
	SerializeUnsigned(v uint64) error
	SerializeFloat(v float64) error
	SerializeStr(v string) error

	// SerializeEnum 输出一个无负载的枚举值。
	SerializeEnum(id uint32, name string) error

	// StartStruct 开始一个包含 n 个成员的记录。
	StartStruct(n int) error
	SerializeStructField(id uint32, name string, v Serialize) error
	EndStruct() error

	// StartSeq 开始一个包含 n 个元素的序列。
	StartSeq(n int) error
	SerializeSeqElmt(v Serialize) error
	EndSeq() error
}

// Serialize 由可序列化的值实现。
type Serialize interface {
	Serialize(s Serializer) error
}

// SerializeFunc 将普通函数适配为 Serialize。
type SerializeFunc func(s Serializer) error

func (f SerializeFunc) Serialize(s Serializer) error {
	return f(s)
}

// 编译期断言：确保 SerializeFunc 实现了 Serialize 接口。
var _ Serialize = SerializeFunc(nil)

func Null() Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeNull()
	})
}

// Unit 输出无负载联合体变体的占位值（null）。
func Unit() Serialize {
	return Null()
}

func Bool(v bool) Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeBool(v)
	})
}

func Int[T constraints.Signed](v T) Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeSigned(int64(v))
	})
}

func Uint[T constraints.Unsigned](v T) Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeUnsigned(uint64(v))
	})
}

func Float[T constraints.Float](v T) Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeFloat(float64(v))
	})
}

func Str(v string) Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeStr(v)
	})
}

func Enum(id uint32, name string) Serialize {
	return SerializeFunc(func(s Serializer) error {
		return s.SerializeEnum(id, name)
	})
}

// Seq 使用 elem 逐个序列化 items。
func Seq[T any](items []T, elem func(T) Serialize) Serialize {
	return SerializeFunc(func(s Serializer) error {
		if err := s.StartSeq(len(items)); err != nil {
			return err
		}
		for i := range items {
			if err := s.SerializeSeqElmt(elem(items[i])); err != nil {
				return err
			}
		}
		return s.EndSeq()
	})
}

// Opt 序列化一个可选值：nil 输出 null，否则委托给 inner。
func Opt[T any](v *T, inner func(T) Serialize) Serialize {
	return SerializeFunc(func(s Serializer) error {
		if v == nil {
			return s.SerializeNull()
		}
		return inner(*v).Serialize(s)
	})
}

// SerializeRecord 按字段表顺序输出一个完整记录，values 与 fields.List 一一对应。
func SerializeRecord(s Serializer, fields *Fields, values ...Serialize) error {
	if len(values) != len(fields.List) {
		return merr.WrapErrSerialize("record value count mismatch", fields.Name)
	}
	if err := s.StartStruct(len(values)); err != nil {
		return err
	}
	for i, f := range fields.List {
		if err := s.SerializeStructField(f.ID, f.Name, values[i]); err != nil {
			return err
		}
	}
	return s.EndStruct()
}

// SerializeVariant 输出只包含一个成员的记录，用于联合体。
func SerializeVariant(s Serializer, f Field, payload Serialize) error {
	if err := s.StartStruct(1); err != nil {
		return err
	}
	if err := s.SerializeStructField(f.ID, f.Name, payload); err != nil {
		return err
	}
	return s.EndStruct()
}
