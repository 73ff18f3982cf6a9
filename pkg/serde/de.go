package serde

import (
	"fmt"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Deserializer 是反序列化的输入端（source）。
// 每次 Deserialize 调用恰好消费一个值，并把它推送给 visitor。
type Deserializer interface {
	Deserialize(v Visitor) error
}

// DeserializerFunc 将普通函数适配为 Deserializer。
type DeserializerFunc func(v Visitor) error

func (f DeserializerFunc) Deserialize(v Visitor) error {
	return f(v)
}

// Visitor 接收一个已解码的值。
//
// 每种基础类型与聚合类型各对应一个入口。未被具体 Visitor 处理的入口由
// UnimplementedVisitor 统一拒绝，返回 ErrUnimplementedVisit。
type Visitor interface {
	VisitNull() error
	VisitBool(v bool) error
	VisitSigned(v int64) error
	VisitUnsigned(v uint64) error
	VisitFloat(v float64) error
	VisitStr(v string) error

	// VisitSeq 开始接收一个序列，sizeHint 为负表示长度未知。
	VisitSeq(sizeHint int) (SeqBuilder, error)
	// VisitStruct 开始接收一个记录（或联合体、带负载的枚举）。
	VisitStruct() (StructBuilder, error)
}

// SeqBuilder 逐个接收序列元素。
// 每次 Element 返回的 Visitor 必须在下一次 Element 或 Finish 之前被使用。
type SeqBuilder interface {
	Element() (Visitor, error)
	Finish() error
}

// StructBuilder 逐个接收记录成员。
type StructBuilder interface {
	Member(key MemberKey) (Visitor, error)
	Finish() error
}

// Binding 为类型 T 生成一个写入 p 的 Visitor，是类型参与反序列化的唯一入口。
type Binding[T any] func(p *Place[T]) Visitor

// UnimplementedVisitor 拒绝所有入口，需要嵌入到具体 Visitor 中使用。
// Target 用于错误信息中描述目标类型。
type UnimplementedVisitor struct {
	Target string
}

func (u UnimplementedVisitor) VisitNull() error {
	return merr.WrapErrUnimplementedVisit(u.Target, "null")
}

func (u UnimplementedVisitor) VisitBool(bool) error {
	return merr.WrapErrUnimplementedVisit(u.Target, "bool")
}

func (u UnimplementedVisitor) VisitSigned(int64) error {
	return merr.WrapErrUnimplementedVisit(u.Target, "signed")
}

func (u UnimplementedVisitor) VisitUnsigned(uint64) error {
	return merr.WrapErrUnimplementedVisit(u.Target, "unsigned")
}

func (u UnimplementedVisitor) VisitFloat(float64) error {
	return merr.WrapErrUnimplementedVisit(u.Target, "float")
}

func (u UnimplementedVisitor) VisitStr(string) error {
	return merr.WrapErrUnimplementedVisit(u.Target, "str")
}

func (u UnimplementedVisitor) VisitSeq(int) (SeqBuilder, error) {
	return nil, merr.WrapErrUnimplementedVisit(u.Target, "seq")
}

func (u UnimplementedVisitor) VisitStruct() (StructBuilder, error) {
	return nil, merr.WrapErrUnimplementedVisit(u.Target, "struct")
}

// 编译期断言：UnimplementedVisitor 本身即是一个合法的 Visitor。
var _ Visitor = UnimplementedVisitor{}

// Deserialize 从 d 中读取一个 T。
// d 返回成功但绑定从未写入目标槽位时，返回 ErrValueNotProduced。
func Deserialize[T any](d Deserializer, b Binding[T]) (T, error) {
	var out T
	if err := DeserializeInto(d, &out, b); err != nil {
		return out, err
	}
	return out, nil
}

// DeserializeInto 与 Deserialize 相同，但直接写入调用方提供的存储。
func DeserializeInto[T any](d Deserializer, out *T, b Binding[T]) error {
	p := NewPlace(out)
	if err := d.Deserialize(b(p)); err != nil {
		return err
	}
	if !p.Filled() {
		return merr.WrapErrValueNotProduced(fmt.Sprintf("%T", *out))
	}
	return nil
}
