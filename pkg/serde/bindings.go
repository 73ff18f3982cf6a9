package serde

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// 数值绑定只接受无损转换：转换后再转回必须得到原值。
// 浮点数转整数时先做范围检查，再向零截断；NaN 总是被拒绝。
// 布尔值可以写入数值目标（true=1，false=0），数值也可以写入布尔目标（非零为 true）。

const (
	// 2^63 与 2^64 的 float64 表示，用于浮点到整数的范围检查。
	float64TwoPow63 = 9223372036854775808.0
	float64TwoPow64 = 18446744073709551616.0
)

type intVisitor[T constraints.Signed] struct {
	UnimplementedVisitor
	place *Place[T]
}

// IntBinding 绑定有符号整数类型。
func IntBinding[T constraints.Signed](p *Place[T]) Visitor {
	return &intVisitor[T]{UnimplementedVisitor: UnimplementedVisitor{Target: "signed integer"}, place: p}
}

func (v *intVisitor[T]) VisitBool(b bool) error {
	if b {
		v.place.Set(1)
	} else {
		v.place.Set(0)
	}
	return nil
}

func (v *intVisitor[T]) VisitSigned(x int64) error {
	t := T(x)
	if int64(t) != x {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	v.place.Set(t)
	return nil
}

func (v *intVisitor[T]) VisitUnsigned(x uint64) error {
	if x > math.MaxInt64 {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	return v.VisitSigned(int64(x))
}

func (v *intVisitor[T]) VisitFloat(x float64) error {
	if math.IsNaN(x) || x < -float64TwoPow63 || x >= float64TwoPow63 {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	return v.VisitSigned(int64(x))
}

type uintVisitor[T constraints.Unsigned] struct {
	UnimplementedVisitor
	place *Place[T]
}

// UintBinding 绑定无符号整数类型。
func UintBinding[T constraints.Unsigned](p *Place[T]) Visitor {
	return &uintVisitor[T]{UnimplementedVisitor: UnimplementedVisitor{Target: "unsigned integer"}, place: p}
}

func (v *uintVisitor[T]) VisitBool(b bool) error {
	if b {
		v.place.Set(1)
	} else {
		v.place.Set(0)
	}
	return nil
}

func (v *uintVisitor[T]) VisitSigned(x int64) error {
	if x < 0 {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	return v.VisitUnsigned(uint64(x))
}

func (v *uintVisitor[T]) VisitUnsigned(x uint64) error {
	t := T(x)
	if uint64(t) != x {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	v.place.Set(t)
	return nil
}

func (v *uintVisitor[T]) VisitFloat(x float64) error {
	if math.IsNaN(x) || x < 0 || x >= float64TwoPow64 {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	return v.VisitUnsigned(uint64(x))
}

type floatVisitor[T constraints.Float] struct {
	UnimplementedVisitor
	place *Place[T]
}

// FloatBinding 绑定浮点类型。
// 写入 32 位目标时，超出 float32 表示范围的有限值会被拒绝。
func FloatBinding[T constraints.Float](p *Place[T]) Visitor {
	return &floatVisitor[T]{UnimplementedVisitor: UnimplementedVisitor{Target: "float"}, place: p}
}

func (v *floatVisitor[T]) VisitBool(b bool) error {
	if b {
		v.place.Set(1)
	} else {
		v.place.Set(0)
	}
	return nil
}

func (v *floatVisitor[T]) VisitSigned(x int64) error {
	v.place.Set(T(x))
	return nil
}

func (v *floatVisitor[T]) VisitUnsigned(x uint64) error {
	v.place.Set(T(x))
	return nil
}

func (v *floatVisitor[T]) VisitFloat(x float64) error {
	var zero T
	if unsafe.Sizeof(zero) == 4 && !math.IsInf(x, 0) && !math.IsNaN(x) && math.Abs(x) > math.MaxFloat32 {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	v.place.Set(T(x))
	return nil
}

type boolVisitor struct {
	UnimplementedVisitor
	place *Place[bool]
}

func BoolBinding(p *Place[bool]) Visitor {
	return &boolVisitor{UnimplementedVisitor: UnimplementedVisitor{Target: "bool"}, place: p}
}

func (v *boolVisitor) VisitBool(b bool) error {
	v.place.Set(b)
	return nil
}

func (v *boolVisitor) VisitSigned(x int64) error {
	v.place.Set(x != 0)
	return nil
}

func (v *boolVisitor) VisitUnsigned(x uint64) error {
	v.place.Set(x != 0)
	return nil
}

func (v *boolVisitor) VisitFloat(x float64) error {
	if math.IsNaN(x) {
		return merr.WrapErrIncompatibleNumericType(v.Target, x)
	}
	v.place.Set(x != 0)
	return nil
}

type stringVisitor struct {
	UnimplementedVisitor
	place *Place[string]
}

func StringBinding(p *Place[string]) Visitor {
	return &stringVisitor{UnimplementedVisitor: UnimplementedVisitor{Target: "string"}, place: p}
}

func (v *stringVisitor) VisitStr(s string) error {
	v.place.Set(s)
	return nil
}

type unitVisitor struct {
	UnimplementedVisitor
	place *Place[struct{}]
}

// UnitBinding 只接受 null，用于无负载的联合体变体。
func UnitBinding(p *Place[struct{}]) Visitor {
	return &unitVisitor{UnimplementedVisitor: UnimplementedVisitor{Target: "unit"}, place: p}
}

func (v *unitVisitor) VisitNull() error {
	v.place.Set(struct{}{})
	return nil
}

// OptionalBinding 将 inner 包装为可选值：null 写入 nil，其他值交给 inner 构造后写入指针。
func OptionalBinding[T any](inner Binding[T]) Binding[*T] {
	return func(p *Place[*T]) Visitor {
		return &optionalVisitor[T]{place: p, inner: inner}
	}
}

type optionalVisitor[T any] struct {
	place *Place[*T]
	inner Binding[T]
}

// slot 为内部值分配存储，返回内部 Visitor 与完成回调。
func (v *optionalVisitor[T]) slot() (Visitor, func() error) {
	value := new(T)
	p := NewPlace(value)
	return v.inner(p), func() error {
		if !p.Filled() {
			return merr.WrapErrValueNotProduced("optional")
		}
		v.place.Set(value)
		return nil
	}
}

func (v *optionalVisitor[T]) VisitNull() error {
	v.place.Set(nil)
	return nil
}

func (v *optionalVisitor[T]) VisitBool(b bool) error {
	inner, done := v.slot()
	if err := inner.VisitBool(b); err != nil {
		return err
	}
	return done()
}

func (v *optionalVisitor[T]) VisitSigned(x int64) error {
	inner, done := v.slot()
	if err := inner.VisitSigned(x); err != nil {
		return err
	}
	return done()
}

func (v *optionalVisitor[T]) VisitUnsigned(x uint64) error {
	inner, done := v.slot()
	if err := inner.VisitUnsigned(x); err != nil {
		return err
	}
	return done()
}

func (v *optionalVisitor[T]) VisitFloat(x float64) error {
	inner, done := v.slot()
	if err := inner.VisitFloat(x); err != nil {
		return err
	}
	return done()
}

func (v *optionalVisitor[T]) VisitStr(s string) error {
	inner, done := v.slot()
	if err := inner.VisitStr(s); err != nil {
		return err
	}
	return done()
}

func (v *optionalVisitor[T]) VisitSeq(sizeHint int) (SeqBuilder, error) {
	inner, done := v.slot()
	b, err := inner.VisitSeq(sizeHint)
	if err != nil {
		return nil, err
	}
	return &optionalSeqBuilder{SeqBuilder: b, done: done}, nil
}

func (v *optionalVisitor[T]) VisitStruct() (StructBuilder, error) {
	inner, done := v.slot()
	b, err := inner.VisitStruct()
	if err != nil {
		return nil, err
	}
	return &optionalStructBuilder{StructBuilder: b, done: done}, nil
}

type optionalSeqBuilder struct {
	SeqBuilder
	done func() error
}

func (b *optionalSeqBuilder) Finish() error {
	if err := b.SeqBuilder.Finish(); err != nil {
		return err
	}
	return b.done()
}

type optionalStructBuilder struct {
	StructBuilder
	done func() error
}

func (b *optionalStructBuilder) Finish() error {
	if err := b.StructBuilder.Finish(); err != nil {
		return err
	}
	return b.done()
}

// SliceBinding 绑定元素类型为 T 的切片。
func SliceBinding[T any](elem Binding[T]) Binding[[]T] {
	return func(p *Place[[]T]) Visitor {
		return &sliceVisitor[T]{UnimplementedVisitor: UnimplementedVisitor{Target: "slice"}, place: p, elem: elem}
	}
}

type sliceVisitor[T any] struct {
	UnimplementedVisitor
	place *Place[[]T]
	elem  Binding[T]
}

// maxSizeHint 限制按长度提示预分配的元素数量，避免恶意输入触发超大分配。
const maxSizeHint = 4096

func (v *sliceVisitor[T]) VisitSeq(sizeHint int) (SeqBuilder, error) {
	b := &sliceBuilder[T]{place: v.place}
	if sizeHint > 0 {
		b.items = make([]T, 0, min(sizeHint, maxSizeHint))
	} else {
		b.items = make([]T, 0)
	}
	b.visitor = v.elem(&b.slot)
	return b, nil
}

// sliceBuilder 复用同一个元素槽位与 Visitor，每个元素直接构造在切片末尾。
type sliceBuilder[T any] struct {
	place   *Place[[]T]
	items   []T
	slot    Place[T]
	visitor Visitor
	pending bool
}

func (b *sliceBuilder[T]) flush() error {
	if b.pending && !b.slot.Filled() {
		return merr.WrapErrValueNotProduced("slice element")
	}
	b.pending = false
	return nil
}

func (b *sliceBuilder[T]) Element() (Visitor, error) {
	if err := b.flush(); err != nil {
		return nil, err
	}
	var zero T
	b.items = append(b.items, zero)
	b.slot.retarget(&b.items[len(b.items)-1])
	b.pending = true
	return b.visitor, nil
}

func (b *sliceBuilder[T]) Finish() error {
	if err := b.flush(); err != nil {
		return err
	}
	b.place.Set(b.items)
	return nil
}
