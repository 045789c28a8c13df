package search

import (
	"container/heap"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
)

type queued struct {
	path  []action.Pair
	state *state.State
	score float64
	seq   int
}

// chainQueue pops the highest score first and, among equal scores, the
// chain queued earliest.
type chainQueue []queued

func (q chainQueue) Len() int { return len(q) }
func (q chainQueue) Less(i, j int) bool {
	if q[i].score != q[j].score {
		return q[i].score > q[j].score
	}
	return q[i].seq < q[j].seq
}
func (q chainQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *chainQueue) Push(x any)   { *q = append(*q, x.(queued)) }
func (q *chainQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// bestFirst expands the best scoring chain in the queue until the queue
// empties or the search is stopped. Every evaluated child is queued
// unless strict is set, in which case only children scoring above their
// parent are.
func (r *run) bestFirst(root *state.State, strict bool) ([]action.Pair, float64) {
	maxLen := r.sr.Config.MaxChainLength

	rootScore := r.evaluate(root, nil)
	var best []action.Pair
	bestScore := rootScore
	r.bestSeq = r.evaluated

	q := chainQueue{{state: root, score: rootScore, seq: r.evaluated}}
	for q.Len() > 0 {
		if r.stop() {
			break
		}
		top := heap.Pop(&q).(queued)
		if len(top.path) >= maxLen || !r.expandable(top.path) {
			continue
		}
		for _, c := range r.children(top.state, top.path) {
			path := extend(top.path, c)
			v := r.evaluate(c.State, path)
			if v > bestScore {
				best, bestScore, r.bestSeq = path, v, r.evaluated
			}
			if r.stop() {
				return best, bestScore
			}
			if strict && v <= top.score {
				continue
			}
			heap.Push(&q, queued{path: path, state: c.State, score: v, seq: r.evaluated})
		}
	}
	return best, bestScore
}
