package binomial

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Sink receives the finished lattice of a pricing call, once per call.
// Implementations must not retain or modify the tree.
type Sink interface {
	LatticeBuilt(t *Tree)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(t *Tree)

func (f SinkFunc) LatticeBuilt(t *Tree) { f(t) }

// TextSink prints each lattice as alternating "Stock:" and "Option:" rows,
// one pair per layer, in 8-wide columns.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSink writes to w. Writes from concurrent pricing calls are serialized.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) LatticeBuilt(t *Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bw := bufio.NewWriter(s.w)
	fmt.Fprintf(bw, "BinomialTree with %d time steps:\n\n", t.Steps)
	for _, layer := range t.Layers {
		bw.WriteString("Stock:  ")
		for _, n := range layer {
			fmt.Fprintf(bw, "%8.2f", n.Stock)
		}
		bw.WriteString("\nOption: ")
		for _, n := range layer {
			fmt.Fprintf(bw, "%8.2f", n.Value)
		}
		bw.WriteString("\n\n")
	}
	_ = bw.Flush()
}
