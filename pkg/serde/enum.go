package serde

import (
	"math"

	"github.com/samber/lo"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Variant 描述一个无负载枚举值。
type Variant[T comparable] struct {
	ID    uint32
	Name  string
	Value T
}

// EnumTable 是枚举类型的变体表。
type EnumTable[T comparable] struct {
	name     string
	variants []Variant[T]
	byValue  map[T]int
}

// NewEnumTable 创建变体表并检查 id 唯一性。
func NewEnumTable[T comparable](name string, variants ...Variant[T]) (*EnumTable[T], error) {
	dup := lo.FindDuplicatesBy(variants, func(v Variant[T]) uint32 { return v.ID })
	if len(dup) > 0 {
		return nil, merr.WrapErrDuplicateID(name, dup[0].ID)
	}
	byValue := make(map[T]int, len(variants))
	for i, v := range variants {
		byValue[v.Value] = i
	}
	return &EnumTable[T]{name: name, variants: variants, byValue: byValue}, nil
}

func MustEnumTable[T comparable](name string, variants ...Variant[T]) *EnumTable[T] {
	t, err := NewEnumTable(name, variants...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *EnumTable[T]) Name() string {
	return t.name
}

// Lookup 先按 id、再按名称查找变体。
func (t *EnumTable[T]) Lookup(key MemberKey) (T, bool) {
	if key.HasID {
		if v, ok := lo.Find(t.variants, func(v Variant[T]) bool { return v.ID == key.ID }); ok {
			return v.Value, true
		}
	}
	if key.Name != "" {
		if v, ok := lo.Find(t.variants, func(v Variant[T]) bool { return v.Name == key.Name }); ok {
			return v.Value, true
		}
	}
	var zero T
	return zero, false
}

// NameOf 按值反查变体名称。
func (t *EnumTable[T]) NameOf(v T) (string, bool) {
	idx, ok := t.byValue[v]
	if !ok {
		return "", false
	}
	return t.variants[idx].Name, true
}

// Serialize 返回 v 的序列化形式，v 不在表中时返回 ErrSerialize。
func (t *EnumTable[T]) Serialize(v T) Serialize {
	return SerializeFunc(func(s Serializer) error {
		idx, ok := t.byValue[v]
		if !ok {
			return merr.WrapErrSerialize("value not in enum table", t.name)
		}
		return s.SerializeEnum(t.variants[idx].ID, t.variants[idx].Name)
	})
}

// Binding 返回枚举的反序列化入口。
//
// 接受以下输入形式：
//   - 字符串："id:name"、"name" 或纯数字 id；
//   - 非负整数 id；
//   - 只含一个成员且负载为 null 的记录（与联合体的线上形式兼容）。
func (t *EnumTable[T]) Binding() Binding[T] {
	return func(p *Place[T]) Visitor {
		return &enumVisitor[T]{UnimplementedVisitor: UnimplementedVisitor{Target: t.name}, table: t, place: p}
	}
}

type enumVisitor[T comparable] struct {
	UnimplementedVisitor
	table *EnumTable[T]
	place *Place[T]
}

func (v *enumVisitor[T]) set(key MemberKey) error {
	value, ok := v.table.Lookup(key)
	if !ok {
		return merr.WrapErrUnknownEnumVariant(v.table.name, key)
	}
	v.place.Set(value)
	return nil
}

func (v *enumVisitor[T]) VisitStr(s string) error {
	return v.set(ParseKey(s))
}

func (v *enumVisitor[T]) VisitSigned(x int64) error {
	if x < 0 {
		return merr.WrapErrUnknownEnumVariant(v.table.name, x)
	}
	return v.VisitUnsigned(uint64(x))
}

func (v *enumVisitor[T]) VisitUnsigned(x uint64) error {
	if x > math.MaxUint32 {
		return merr.WrapErrUnknownEnumVariant(v.table.name, x)
	}
	return v.set(KeyID(uint32(x)))
}

func (v *enumVisitor[T]) VisitStruct() (StructBuilder, error) {
	return &enumRecordBuilder[T]{visitor: v}, nil
}

type enumRecordBuilder[T comparable] struct {
	visitor *enumVisitor[T]
	chosen  bool
	payload struct{}
}

func (b *enumRecordBuilder[T]) Member(key MemberKey) (Visitor, error) {
	if b.chosen {
		return nil, merr.WrapErrUnknownEnumVariant(b.visitor.table.name, key, "more than one variant")
	}
	if err := b.visitor.set(key); err != nil {
		return nil, err
	}
	b.chosen = true
	return UnitBinding(NewPlace(&b.payload)), nil
}

func (b *enumRecordBuilder[T]) Finish() error {
	if !b.chosen {
		return merr.WrapErrUnknownEnumVariant(b.visitor.table.name, "", "no variant")
	}
	return nil
}
