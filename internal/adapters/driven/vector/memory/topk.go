package memory

import (
	"container/heap"
	"math"
	"sort"
)

// candidate is a scored entry considered for the result set.
type candidate struct {
	chunkID    string
	similarity float64
	seq        uint64
}

// better reports whether a ranks ahead of b: higher similarity first,
// earlier insertion on ties.
func better(a, b candidate) bool {
	if a.similarity != b.similarity {
		return a.similarity > b.similarity
	}
	return a.seq < b.seq
}

// minHeap keeps the worst retained candidate at the root.
type minHeap []candidate

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// topK retains the k best candidates seen so far.
type topK struct {
	k int
	h minHeap
}

func newTopK(k int) *topK {
	capacity := k
	if capacity > 1024 {
		capacity = 1024
	}
	return &topK{k: k, h: make(minHeap, 0, capacity)}
}

// offer considers c for the result set.
func (t *topK) offer(c candidate) {
	if len(t.h) < t.k {
		heap.Push(&t.h, c)
		return
	}
	if better(c, t.h[0]) {
		t.h[0] = c
		heap.Fix(&t.h, 0)
	}
}

// sorted returns the retained candidates best first.
func (t *topK) sorted() []candidate {
	out := make([]candidate, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

// normalise returns a unit-length copy of v. Zero vectors are copied as-is.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// similarity is the dot product of two normalised vectors, clamped to [-1, 1].
func similarity(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return math.Max(-1, math.Min(1, dot))
}
