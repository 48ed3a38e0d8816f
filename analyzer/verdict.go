package analyzer

// Verdict is the final structured result of a Verify call: whether the
// query is safe to run as-is, the ordered list of violations found,
// the repaired query text (when a repair was possible), and an
// optional externally-supplied risk score.
type Verdict struct {
	Allowed bool     `json:"allowed"`
	Errors  []string `json:"errors"`
	Fixed   *string  `json:"fixed"`
	Risk    float64  `json:"risk"`
}

// aggregator accumulates the errors and unfixable flag produced while
// walking a single query, then renders the final Verdict.
type aggregator struct {
	errors    []string
	unfixable bool
}

func (a *aggregator) addError(msg string) {
	a.errors = append(a.errors, msg)
}

func (a *aggregator) markUnfixable() {
	a.unfixable = true
}

func (a *aggregator) verdict(fixedSQL string, changed bool) Verdict {
	v := Verdict{
		Allowed: len(a.errors) == 0,
		Errors:  a.errors,
		Risk:    0.0,
	}
	if len(a.errors) == 0 {
		return v
	}
	if a.unfixable || !changed {
		v.Fixed = nil
		return v
	}
	v.Fixed = &fixedSQL
	return v
}
