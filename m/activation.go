package m

import "math"

// Sigmoid is the logistic activation 1 / (1 + e^(-Beta*x)).
type Sigmoid struct {
	Beta float64
}

func (s Sigmoid) Activate(sum float64) float64 {
	return 1.0 / (1.0 + math.Exp(-s.Beta*sum))
}

// Deactivate returns the derivative term a*(1-a) for an activation a.
func (s Sigmoid) Deactivate(a float64) float64 {
	return a * (1.0 - a)
}

func (s Sigmoid) String() string {
	return "sigmoid"
}
