package underwriting

import "math"

const (
	irrTolerance     = 1e-6
	irrMaxIterations = 200
	irrSeed          = 0.10
	irrLowerBound    = -0.99
	irrUpperBound    = 10.0
)

// NPV discounts flows at rate, with flows[0] at time zero.
func NPV(rate float64, flows []float64) float64 {
	npv := 0.0
	for t, cf := range flows {
		npv += cf / math.Pow(1+rate, float64(t))
	}
	return npv
}

func npvDerivative(rate float64, flows []float64) float64 {
	d := 0.0
	for t, cf := range flows {
		if t == 0 {
			continue
		}
		d -= float64(t) * cf / math.Pow(1+rate, float64(t+1))
	}
	return d
}

func hasSignChange(flows []float64) bool {
	var pos, neg bool
	for _, cf := range flows {
		switch {
		case cf > 0:
			pos = true
		case cf < 0:
			neg = true
		}
	}
	return pos && neg
}

// IRR solves NPV = 0 for flows. It returns false when the flows never change
// sign or no root is found within the iteration budget.
func IRR(flows []float64) (float64, bool) {
	if len(flows) < 2 || !hasSignChange(flows) {
		return 0, false
	}

	rate := irrSeed
	for i := 0; i < irrMaxIterations; i++ {
		npv := NPV(rate, flows)
		d := npvDerivative(rate, flows)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}
		next := rate - npv/d
		if math.IsNaN(next) || next <= irrLowerBound || next >= irrUpperBound {
			break
		}
		if math.Abs(next-rate) < irrTolerance {
			return next, true
		}
		rate = next
	}

	return bisect(flows)
}

func bisect(flows []float64) (float64, bool) {
	lo, hi := irrLowerBound, irrUpperBound
	fLo := NPV(lo, flows)
	if math.Signbit(fLo) == math.Signbit(NPV(hi, flows)) {
		return 0, false
	}
	for i := 0; i < irrMaxIterations; i++ {
		mid := (lo + hi) / 2
		fMid := NPV(mid, flows)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return mid, true
		}
		if math.Signbit(fMid) == math.Signbit(fLo) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return 0, false
}
