package model

func (o *optimizer) hillClimb() {
	if !o.start() {
		return
	}
	p := o.plan
	current := p.outputTime(o.consumer)
	threshold := current * minRelativeImprovement
	limit := hillClimbStepsPerNode * len(p.nodes)

	for o.steps < limit {
		var best *planParam
		bestTime := current
		for _, pp := range p.params {
			if pp.value >= pp.max {
				continue
			}
			pp.value++
			if o.feasible() {
				t := p.outputTime(o.consumer)
				// params are ordered shallowest first, so a tie keeps the
				// node closest to the root
				if t < bestTime && (best == nil || !almostEqual(t, bestTime)) {
					best, bestTime = pp, t
				}
			}
			pp.value--
		}
		improvement := current - bestTime
		if best == nil || improvement <= 0 || improvement < threshold {
			return
		}
		best.value++
		current = bestTime
		o.steps++
	}
}
