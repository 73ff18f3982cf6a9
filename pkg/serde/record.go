package serde

import (
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// Slot 是记录成员的反序列化入口：写入成员存储的 Visitor，以及判断是否已写入的回调。
type Slot struct {
	visitor Visitor
	filled  func() bool
}

// SlotOf 为成员存储 out 创建槽位。
// 可选成员同样必须出现在输入中（显式的 null 表示缺省），否则 Finish 报告缺失字段。
func SlotOf[T any](out *T, b Binding[T]) Slot {
	p := NewPlace(out)
	return Slot{visitor: b(p), filled: p.Filled}
}

// RecordBuilder 是通用的记录构造器：按成员表分发成员，Finish 时检查每个成员都已写入。
//
// slots 与 fields.List 一一对应；commit 在所有成员都已写入后调用一次。
type RecordBuilder struct {
	fields *Fields
	slots  []Slot
	commit func()
}

func NewRecordBuilder(fields *Fields, commit func(), slots ...Slot) *RecordBuilder {
	if len(slots) != len(fields.List) {
		panic("serde: record " + fields.Name + " slot count mismatch")
	}
	return &RecordBuilder{fields: fields, slots: slots, commit: commit}
}

func (b *RecordBuilder) Member(key MemberKey) (Visitor, error) {
	idx, ok := b.fields.Index(key)
	if !ok {
		return nil, merr.WrapErrUnknownField(b.fields.Name, key)
	}
	return b.slots[idx].visitor, nil
}

func (b *RecordBuilder) Finish() error {
	for i := range b.slots {
		if !b.slots[i].filled() {
			return merr.WrapErrMissingField(b.fields.Name, b.fields.List[i].Name)
		}
	}
	b.commit()
	return nil
}

// RecordVisitor 只接受记录形式的输入，用 build 为每次输入创建 RecordBuilder。
type RecordVisitor struct {
	UnimplementedVisitor
	build func() *RecordBuilder
}

func NewRecordVisitor(name string, build func() *RecordBuilder) *RecordVisitor {
	return &RecordVisitor{UnimplementedVisitor: UnimplementedVisitor{Target: name}, build: build}
}

func (v *RecordVisitor) VisitStruct() (StructBuilder, error) {
	return v.build(), nil
}
