package set

/**
  *  @author tryao
  *  @date 2022/03/18 14:15
**/

//Set 是基于map做的Set，非线程安全，需要调用方加锁
type Set[T comparable] struct {
	values map[T]struct{}
}

func NewSet[T comparable](items ...T) *Set[T] {
	var r Set[T]
	r.values = make(map[T]struct{}, len(items))
	for _, item := range items {
		r.values[item] = struct{}{}
	}
	return &r
}

//AddItem 重复添加没有副作用
func (set *Set[T]) AddItem(items ...T) *Set[T] {
	for _, item := range items {
		set.values[item] = struct{}{}
	}
	return set
}

//RemoveItem 不存在的元素直接忽略
func (set *Set[T]) RemoveItem(items ...T) *Set[T] {
	for _, item := range items {
		delete(set.values, item)
	}
	return set
}

func (set *Set[T]) Contains(item T) bool {
	_, ok := set.values[item]
	return ok
}

func (set *Set[T]) Size() int {
	return len(set.values)
}

//Clear 清空
func (set *Set[T]) Clear() {
	set.values = make(map[T]struct{})
}

//Clone 浅拷贝
func (set *Set[T]) Clone() *Set[T] {
	r := &Set[T]{values: make(map[T]struct{}, len(set.values))}
	for t := range set.values {
		r.values[t] = struct{}{}
	}
	return r
}

//Union 两个set的并集
func (set *Set[T]) Union(rhs *Set[T]) *Set[T] {
	r := set.Clone()
	for t := range rhs.values {
		r.values[t] = struct{}{}
	}
	return r
}

//Intersect 两个set的交集
func (set *Set[T]) Intersect(rhs *Set[T]) *Set[T] {
	small, big := set, rhs
	if small.Size() > big.Size() {
		small, big = big, small
	}
	r := NewSet[T]()
	for t := range small.values {
		if big.Contains(t) {
			r.values[t] = struct{}{}
		}
	}
	return r
}

//Intersects 是否有交集，只遍历较小的那个
func (set *Set[T]) Intersects(rhs *Set[T]) bool {
	small, big := set, rhs
	if small.Size() > big.Size() {
		small, big = big, small
	}
	for t := range small.values {
		if big.Contains(t) {
			return true
		}
	}
	return false
}

//ContainsAny 是否包含items中的任意一个
func (set *Set[T]) ContainsAny(items ...T) bool {
	if len(items) > set.Size() {
		return set.Intersects(NewSet(items...))
	}
	for _, item := range items {
		if set.Contains(item) {
			return true
		}
	}
	return false
}

//Difference 两个集合的差集
func (set *Set[T]) Difference(rhs *Set[T]) *Set[T] {
	r := NewSet[T]()
	for t := range set.values {
		if !rhs.Contains(t) {
			r.values[t] = struct{}{}
		}
	}
	return r
}

//ToArray 转为数组，顺序不确定
func (set *Set[T]) ToArray() []T {
	r := make([]T, 0, set.Size())
	for t := range set.values {
		r = append(r, t)
	}
	return r
}

//ForEach 遍历加回调
func (set *Set[T]) ForEach(f func(T)) {
	for t := range set.values {
		f(t)
	}
}
