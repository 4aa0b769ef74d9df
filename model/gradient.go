package model

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

type gradient struct {
	pp      *planParam
	benefit float64 // latency reduction of one more unit at minimum
	cpu     float64 // cores per unit
	ram     float64 // bytes per unit
}

func (o *optimizer) gradientDescent() {
	if !o.start() {
		return
	}
	p := o.plan
	base := p.outputTime(o.consumer)
	cpu0, ram0 := p.cpuUsage(), p.ramUsage()

	var grads []gradient
	for _, pp := range p.params {
		pp.value++
		g := gradient{
			pp:      pp,
			benefit: base - p.outputTime(o.consumer),
			cpu:     p.cpuUsage() - cpu0,
			ram:     p.ramUsage() - ram0,
		}
		pp.value--
		if g.benefit > 0 {
			grads = append(grads, g)
		}
	}
	if len(grads) == 0 {
		return
	}

	cpuShare := lo.SumBy(grads, func(g gradient) float64 { return lo.Ternary(g.cpu > 0, g.benefit, 0) })
	ramShare := lo.SumBy(grads, func(g gradient) float64 { return lo.Ternary(g.ram > 0, g.benefit, 0) })
	cpuHeadroom := o.cpuBudget - cpu0
	ramHeadroom := o.ramBudget - ram0

	for _, g := range grads {
		units := float64(g.pp.max - g.pp.min)
		if g.cpu > 0 {
			units = math.Min(units, math.Floor(g.benefit/cpuShare*cpuHeadroom/g.cpu))
		}
		if g.ram > 0 {
			units = math.Min(units, math.Floor(g.benefit/ramShare*ramHeadroom/g.ram))
		}
		g.pp.value = g.pp.min + int64(math.Max(units, 0))
		o.steps++
	}

	// Rounding can only undershoot; guard against float error anyway.
	sort.SliceStable(grads, func(i, j int) bool { return grads[i].benefit > grads[j].benefit })
	for !o.feasible() {
		shrunk := false
		for i := len(grads) - 1; i >= 0; i-- {
			if pp := grads[i].pp; pp.value > pp.min {
				pp.value--
				shrunk = true
				break
			}
		}
		if !shrunk {
			return
		}
	}

	// Leftover budget goes to the highest-benefit parameter that can still grow.
	for _, g := range grads {
		if !o.grow(g.pp) {
			continue
		}
		for o.grow(g.pp) {
		}
		return
	}
}

// grow increments pp when it has headroom and the result fits the budgets.
func (o *optimizer) grow(pp *planParam) bool {
	if pp.value >= pp.max {
		return false
	}
	pp.value++
	if !o.feasible() {
		pp.value--
		return false
	}
	o.steps++
	return true
}
