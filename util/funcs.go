package util

import (
	"iter"
	"slices"

	"github.com/hashicorp/go-set/v3"
)

func ConcatIter[A any](iter ...iter.Seq[A]) iter.Seq[A] {
	return func(yield func(A) bool) {
		for _, thisIter := range iter {
			for v := range thisIter {
				if !yield(v) {
					return
				}
			}
		}
	}
}

func SetFromSeq[V comparable](s iter.Seq[V], size int) *set.Set[V] {
	newSet := set.New[V](size)
	for item := range s {
		newSet.Insert(item)
	}
	return newSet
}

// SortedSlice returns the elements of s ordered by compare
func SortedSlice[V comparable](s *set.Set[V], compare func(a, b V) int) []V {
	slice := s.Slice()
	slices.SortFunc(slice, compare)
	return slice
}
