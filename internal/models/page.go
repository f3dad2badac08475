package models

// Page — параметры постраничной выборки.
type Page struct {
	Offset int
	Limit  int
}

// List — страница результатов и общее количество записей под фильтром.
type List[T any] struct {
	Data  []T
	Count int
}
