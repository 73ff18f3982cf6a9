package serde

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

// MemberKey 标识记录中的一个成员，可以同时携带数字 id 与名称。
// 解析时先按 id 匹配，匹配失败再按名称匹配。
type MemberKey struct {
	ID    uint32
	HasID bool
	Name  string
}

func KeyID(id uint32) MemberKey {
	return MemberKey{ID: id, HasID: true}
}

func KeyName(name string) MemberKey {
	return MemberKey{Name: name}
}

// ParseKey 解析文本格式中的组合键 "id:name"。
//
// 键在第一个冒号处拆分，冒号后的部分总是名称；冒号前的部分只有在能解析为
// uint32 时才被当作 id。不带冒号的纯数字同样被当作 id。
func ParseKey(s string) MemberKey {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		if id, err := strconv.ParseUint(s[:idx], 10, 32); err == nil {
			return MemberKey{ID: uint32(id), HasID: true, Name: s[idx+1:]}
		}
		return MemberKey{Name: s[idx+1:]}
	}
	if id, err := strconv.ParseUint(s, 10, 32); err == nil {
		return MemberKey{ID: uint32(id), HasID: true}
	}
	return MemberKey{Name: s}
}

func (k MemberKey) String() string {
	switch {
	case k.HasID && k.Name != "":
		return strconv.FormatUint(uint64(k.ID), 10) + ":" + k.Name
	case k.HasID:
		return strconv.FormatUint(uint64(k.ID), 10)
	default:
		return k.Name
	}
}

// Field 描述记录成员的 id 与名称。
type Field struct {
	ID   uint32
	Name string
}

// Fields 是一个记录（或联合体）的成员表。
type Fields struct {
	Name string
	List []Field
}

// NewFields 创建成员表并检查 id 唯一性。
func NewFields(name string, list ...Field) (*Fields, error) {
	f := &Fields{Name: name, List: list}
	if err := f.CheckUnique(); err != nil {
		return nil, err
	}
	return f, nil
}

// MustFields 与 NewFields 相同，失败时 panic，用于包级变量初始化。
func MustFields(name string, list ...Field) *Fields {
	f, err := NewFields(name, list...)
	if err != nil {
		panic(err)
	}
	return f
}

// CheckUnique 检查成员 id 是否重复。
func (f *Fields) CheckUnique() error {
	dup := lo.FindDuplicatesBy(f.List, func(item Field) uint32 { return item.ID })
	if len(dup) > 0 {
		return merr.WrapErrDuplicateID(f.Name, dup[0].ID)
	}
	return nil
}

// Index 返回 key 对应成员的下标。
func (f *Fields) Index(key MemberKey) (int, bool) {
	if key.HasID {
		for i := range f.List {
			if f.List[i].ID == key.ID {
				return i, true
			}
		}
	}
	if key.Name != "" {
		for i := range f.List {
			if f.List[i].Name == key.Name {
				return i, true
			}
		}
	}
	return -1, false
}

// Resolve 返回 key 对应的成员，未知成员返回 ErrUnknownField。
func (f *Fields) Resolve(key MemberKey) (Field, error) {
	idx, ok := f.Index(key)
	if !ok {
		return Field{}, merr.WrapErrUnknownField(f.Name, key)
	}
	return f.List[idx], nil
}
