package serde

// Place 是一个只写一次的目标槽位，指向调用方持有的 T 存储。
//
// Visitor 可以通过 Set 一次性写入完整值，也可以通过 Ptr 原地构造后调用 Commit。
// 调用方通过 Filled 判断槽位是否已经产生了值。
type Place[T any] struct {
	out    *T
	filled bool
}

func NewPlace[T any](out *T) *Place[T] {
	return &Place[T]{out: out}
}

// Set 写入完整值并标记为已填充。
func (p *Place[T]) Set(v T) {
	*p.out = v
	p.filled = true
}

// Ptr 返回底层存储，用于原地构造聚合值。
func (p *Place[T]) Ptr() *T {
	return p.out
}

// Commit 标记通过 Ptr 原地构造的值已经完整。
func (p *Place[T]) Commit() {
	p.filled = true
}

func (p *Place[T]) Filled() bool {
	return p.filled
}

// retarget 让槽位指向新的存储并清除填充状态，供序列构造复用同一个 Visitor。
func (p *Place[T]) retarget(out *T) {
	p.out = out
	p.filled = false
}
