// Package ops is the primitive numerical layer under the pipeline stages:
// colour-space conversion, Sobel gradients, blurs, median and morphology
// filters, area resize and a 2×2 SVD.
//
// Scratch buffers are borrowed through a Scope and returned when the stage
// exits:
//
//	sc := ops.NewScope()
//	defer sc.Release()
//	plane := sc.Floats(w * h)
//
// Buffers handed out by a Scope must not be used after Release.
package ops

import "sync"

// floatPool recycles float64 scratch planes between stage invocations.
var floatPool = sync.Pool{New: func() any { s := make([]float64, 0, 4096); return &s }}

// Scope tracks every scratch buffer a stage borrows so all of them are
// returned on every exit path. A Scope is not safe for concurrent use.
type Scope struct {
	held []*[]float64
}

// NewScope returns an empty scope.
func NewScope() *Scope { return &Scope{} }

// Floats returns a zeroed slice of length n valid until Release.
func (s *Scope) Floats(n int) []float64 {
	p := floatPool.Get().(*[]float64)
	if cap(*p) < n {
		*p = make([]float64, n)
	} else {
		*p = (*p)[:n]
		clear(*p)
	}
	s.held = append(s.held, p)
	return *p
}

// Held reports how many buffers are currently borrowed.
func (s *Scope) Held() int { return len(s.held) }

// Release returns every borrowed buffer to the pool. Calling Release more
// than once is a no-op.
func (s *Scope) Release() {
	for _, p := range s.held {
		floatPool.Put(p)
	}
	s.held = s.held[:0]
}
