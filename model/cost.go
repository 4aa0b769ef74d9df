package model

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// plan is a lock-free copy of the tree taken at the start of an
// optimization pass. Candidate parameter values live in planParam.value
// and are written back to the Parameters in one step.
type plan struct {
	root   *planNode
	nodes  []*planNode
	params []*planParam // tunable only, shallowest first
}

type planNode struct {
	name            string
	kind            Kind
	ratio           float64
	depth           int
	selfTime        float64
	elements        int64
	bytesPerElement float64
	children        []*planNode
	parallelism     *planParam
	bufferSize      *planParam
}

type planParam struct {
	owner *planNode
	param *Parameter
	min   int64
	max   int64
	value int64
}

// newPlan copies the subtree under root. Callers hold model.mu for reading.
func newPlan(root *Node) *plan {
	if root == nil {
		return nil
	}
	p := &plan{}
	var build func(n *Node, depth int) *planNode
	build = func(n *Node, depth int) *planNode {
		pn := &planNode{
			name:            n.DisplayName(),
			kind:            n.kind,
			ratio:           n.ratio,
			depth:           depth,
			selfTime:        n.SelfTime(),
			elements:        n.Elements(),
			bytesPerElement: n.BytesPerElement(),
		}
		p.nodes = append(p.nodes, pn)
		for _, param := range n.params {
			pp := &planParam{owner: pn, param: param, min: param.min, max: param.max, value: param.Value()}
			switch param.name {
			case Parallelism:
				pn.parallelism = pp
			case BufferSize:
				pn.bufferSize = pp
			}
			if param.Tunable() {
				p.params = append(p.params, pp)
			}
		}
		for _, c := range n.children {
			pn.children = append(pn.children, build(c, depth+1))
		}
		return pn
	}
	p.root = build(root, 0)
	sort.SliceStable(p.params, func(i, j int) bool {
		return p.params[i].owner.depth < p.params[j].owner.depth
	})
	return p
}

func (p *plan) resetToMin() {
	for _, pp := range p.params {
		pp.value = pp.min
	}
}

// apply writes the candidate values and returns the parameters that changed.
func (p *plan) apply() []*Parameter {
	var changed []*Parameter
	for _, pp := range p.params {
		if pp.param.set(pp.value) {
			changed = append(changed, pp.param)
		}
	}
	return changed
}

func (p *plan) outputTime(consumer float64) float64 {
	return p.root.outputTime(consumer)
}

// cpuUsage is the number of cores held by async workers.
func (p *plan) cpuUsage() float64 {
	return lo.SumBy(p.nodes, func(n *planNode) float64 {
		if n.kind != KindAsync {
			return 0
		}
		return float64(n.parallelismValue())
	})
}

// ramUsage is the number of bytes held by async buffers.
func (p *plan) ramUsage() float64 {
	return lo.SumBy(p.nodes, func(n *planNode) float64 {
		if n.kind != KindAsync {
			return 0
		}
		return float64(n.bufferValue()) * n.bytesPerElement
	})
}

func (n *planNode) parallelismValue() int64 {
	if n.parallelism == nil || n.parallelism.value < 1 {
		return 1
	}
	return n.parallelism.value
}

// bufferValue falls back to the parallelism: a parallel stage without an
// explicit buffer keeps one slot per worker.
func (n *planNode) bufferValue() int64 {
	if n.bufferSize != nil {
		return n.bufferSize.value
	}
	if n.parallelism != nil {
		return n.parallelism.value
	}
	return 1
}

// outputTime estimates the nanoseconds between the consumer asking for an
// element and receiving it; consumer is the consumer's own time per element.
func (n *planNode) outputTime(consumer float64) float64 {
	switch n.kind {
	case KindSequential:
		return n.inputTime(consumer+n.selfTime) + n.selfTime
	case KindKnownRatio:
		downstream := consumer + n.selfTime
		if n.ratio > 0 {
			downstream /= n.ratio
		}
		return n.ratio*n.inputTime(downstream) + n.selfTime
	case KindAsync:
		par := float64(n.parallelismValue())
		input := n.inputTime(n.selfTime / par)
		producer := math.Max(n.selfTime, input) / par
		return bufferWait(producer, consumer, n.bufferValue())
	case KindInterleave:
		return n.selfTime + n.interleaveInputTime(consumer+n.selfTime)
	default:
		return n.inputTime(consumer)
	}
}

func (n *planNode) inputTime(consumer float64) float64 {
	return lo.SumBy(n.children, func(c *planNode) float64 { return c.outputTime(consumer) })
}

// interleaveInputTime weights each branch by its share of produced
// elements. Branches are weighted equally until any has produced.
func (n *planNode) interleaveInputTime(consumer float64) float64 {
	if len(n.children) == 0 {
		return 0
	}
	total := lo.SumBy(n.children, func(c *planNode) int64 { return c.elements })
	var sum float64
	for _, c := range n.children {
		w := 1 / float64(len(n.children))
		if total > 0 {
			w = float64(c.elements) / float64(total)
		}
		if w > 0 {
			sum += w * c.outputTime(consumer)
		}
	}
	return sum
}

// bufferWait is the expected wait of a consumer in front of a buffer of
// the given capacity filled by a producer: producer time scaled by the
// probability the buffer is empty in an M/M/1/K queue.
func bufferWait(producer, consumer float64, capacity int64) float64 {
	if producer <= 0 {
		return 0
	}
	if capacity < 1 {
		return producer
	}
	rho := consumer / producer
	k := float64(capacity + 1)
	var empty float64
	if math.Abs(rho-1) < 1e-9 {
		empty = 1 / k
	} else {
		empty = (1 - rho) / (1 - math.Pow(rho, k))
	}
	if math.IsNaN(empty) || empty < 0 {
		empty = 0
	}
	return producer * math.Min(empty, 1)
}
