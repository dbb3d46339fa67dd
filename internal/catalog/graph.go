package catalog

import (
	"container/heap"
)

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder returns entry indices with prerequisites before dependents.
// The ready queue is a min-heap by registration index. Entries on or behind
// a cycle are missing from the result.
func (c *Catalog) topoOrder() []int {
	pending := make([]int, len(c.entries))
	ready := &intMinHeap{}
	heap.Init(ready)
	for i, e := range c.entries {
		pending[i] = len(e.prereqs)
		if pending[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(c.entries))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, d := range c.entries[n].dependents {
			pending[d]--
			if pending[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}
	return out
}

// findCycle walks prerequisite edges depth first in registration order and
// returns the first cycle found as a closed path of keys
// (course -> prerequisite -> ... -> course), or nil.
func (c *Catalog) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(c.entries))
	parent := make([]int, len(c.entries))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range c.entries[u].prereqs {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Back edge u -> v closes v ... u -> v.
				cycle = append(cycle, v)
				cur := u
				for cur != -1 && cur != v {
					cycle = append(cycle, cur)
					cur = parent[cur]
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range c.entries {
		if color[i] != white {
			continue
		}
		if dfs(i) {
			break
		}
	}

	if len(cycle) == 0 {
		return nil
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, c.entries[cycle[i]].Key)
	}
	return out
}
