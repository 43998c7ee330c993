package stream

// Reducer folds elements of type T into a result R through an accumulator A.
type Reducer[T, A, R any] interface {
	// Supply creates an empty accumulator.
	Supply() A
	// Add folds one element into the accumulator.
	Add(acc A, v T) A
	// Finish converts the accumulator into the result.
	Finish(acc A) R
}

// ReducerFuncs builds a Reducer from functions. A nil FinishFunc requires A
// and R to be the same type.
type ReducerFuncs[T, A, R any] struct {
	SupplyFunc func() A
	AddFunc    func(acc A, v T) A
	FinishFunc func(acc A) R
}

// Supply calls SupplyFunc, or returns the zero accumulator.
func (f ReducerFuncs[T, A, R]) Supply() A {
	if f.SupplyFunc == nil {
		var zero A
		return zero
	}
	return f.SupplyFunc()
}

// Add calls AddFunc.
func (f ReducerFuncs[T, A, R]) Add(acc A, v T) A {
	return f.AddFunc(acc, v)
}

// Finish calls FinishFunc, or returns acc itself when it already is an R.
func (f ReducerFuncs[T, A, R]) Finish(acc A) R {
	if f.FinishFunc == nil {
		return any(acc).(R)
	}
	return f.FinishFunc(acc)
}

// ToSlice collects elements into a slice in stream order.
func ToSlice[T any]() Reducer[T, []T, []T] {
	return ReducerFuncs[T, []T, []T]{
		SupplyFunc: func() []T { return []T{} },
		AddFunc:    func(acc []T, v T) []T { return append(acc, v) },
	}
}

// ToSet collects elements into a set.
func ToSet[T comparable]() Reducer[T, map[T]struct{}, map[T]struct{}] {
	return ReducerFuncs[T, map[T]struct{}, map[T]struct{}]{
		SupplyFunc: func() map[T]struct{} { return make(map[T]struct{}) },
		AddFunc: func(acc map[T]struct{}, v T) map[T]struct{} {
			acc[v] = struct{}{}
			return acc
		},
	}
}
