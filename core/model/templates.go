package model

// RecoveryTemplates maps each service band to its per-timepoint-index recovery
// minutes. Index 0 is the route's first timepoint.
type RecoveryTemplates map[ServiceBandName][]int

// Clone returns a deep copy.
func (t RecoveryTemplates) Clone() RecoveryTemplates {
	if t == nil {
		return nil
	}
	cp := make(RecoveryTemplates, len(t))
	for band, tmpl := range t {
		cp[band] = append([]int(nil), tmpl...)
	}
	return cp
}

// TemplateValue reads index i from a template, extending a short template with
// its last value. An empty template yields zero.
func TemplateValue(tmpl []int, i int) int {
	if len(tmpl) == 0 {
		return 0
	}
	if i >= len(tmpl) {
		return tmpl[len(tmpl)-1]
	}
	if i < 0 {
		return 0
	}
	return tmpl[i]
}
