package template

import (
	"fmt"
	"math"

	"github.com/mikermcconnell/BusScheduler-sub001/core/cascade"
	"github.com/mikermcconnell/BusScheduler-sub001/core/logger"
	"github.com/mikermcconnell/BusScheduler-sub001/core/model"
)

// SetCell returns a copy of the templates with one per-index value changed.
// The band's template grows as needed, padding with zeros.
func SetCell(templates model.RecoveryTemplates, bandName model.ServiceBandName, index, minutes int) (model.RecoveryTemplates, error) {
	if index < 0 {
		return nil, fmt.Errorf("template cell: negative index %d", index)
	}
	out := templates.Clone()
	if out == nil {
		out = model.RecoveryTemplates{}
	}
	tmpl := out[bandName]
	for len(tmpl) <= index {
		tmpl = append(tmpl, 0)
	}
	tmpl[index] = minutes
	out[bandName] = tmpl
	return out, nil
}

// Broadcast copies the master array over every band's template. When the
// template set is empty the five canonical bands are seeded.
func Broadcast(templates model.RecoveryTemplates, master []int) model.RecoveryTemplates {
	out := model.RecoveryTemplates{}
	if len(templates) == 0 {
		for _, b := range model.OrderedBands() {
			out[b] = append([]int(nil), master...)
		}
		return out
	}
	for b := range templates {
		out[b] = append([]int(nil), master...)
	}
	return out
}

// DeriveFromTargetPercentage builds a template whose total recovery is the
// given percentage of the band's travel minutes, rounded, spread evenly over
// the non-first timepoints with any remainder added to the last one. The
// first timepoint is always zero.
func DeriveFromTargetPercentage(travelMinutes float64, pct float64, numTimePoints int) []int {
	if numTimePoints < 2 {
		return []int{0}
	}
	total := int(math.Round(travelMinutes * pct / 100))
	if total < 0 {
		total = 0
	}
	n := numTimePoints - 1
	each := total / n
	remainder := total - each*n

	tmpl := make([]int, numTimePoints)
	for i := 1; i < numTimePoints; i++ {
		tmpl[i] = each
	}
	tmpl[numTimePoints-1] += remainder
	return tmpl
}

// Applier rewrites the recovery times of every trip in a band to a template,
// reusing the cascade engine so each cell behaves exactly like a manual edit.
type Applier struct {
	engine *cascade.Engine
	log    logger.Logger
}

// NewApplier creates an Applier on top of the given cascade engine.
func NewApplier(engine *cascade.Engine, log logger.Logger) *Applier {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Applier{engine: engine, log: log}
}

// ApplyTemplate sets every trip of the band to the template's recovery
// values, cascading each change through the trip and its block. A template
// shorter than the timepoint count is extended with its last value. The
// engine's closing tail pass leaves block tails zeroed as usual.
func (a *Applier) ApplyTemplate(s model.Schedule, bandName model.ServiceBandName, tmpl []int) model.Schedule {
	var tripNumbers []int
	for _, t := range s.Trips {
		if t.ServiceBand == bandName {
			tripNumbers = append(tripNumbers, t.TripNumber)
		}
	}
	if len(tripNumbers) == 0 {
		a.log.Debugf("apply template: no trips in band %q", bandName)
		return s
	}
	for _, num := range tripNumbers {
		for i, tp := range s.TimePoints {
			s = a.engine.ApplyRecoveryEdit(s, num, tp.ID, model.TemplateValue(tmpl, i))
		}
	}
	return s
}

// ApplyTargetRecoveryPercentage derives a template from the band's travel
// minutes and applies it. The band must carry a total-minutes figure.
func (a *Applier) ApplyTargetRecoveryPercentage(s model.Schedule, bandName model.ServiceBandName, pct float64) (model.Schedule, []int, error) {
	var travel int
	found := false
	for _, b := range s.ServiceBands {
		if b.Name == bandName {
			travel = b.TotalMinutes
			found = true
			break
		}
	}
	if !found || travel <= 0 {
		return s, nil, fmt.Errorf("target recovery: band %q has no travel minutes", bandName)
	}
	tmpl := DeriveFromTargetPercentage(float64(travel), pct, len(s.TimePoints))
	return a.ApplyTemplate(s, bandName, tmpl), tmpl, nil
}
