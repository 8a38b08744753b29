package domain

import "sort"

// Prediction is the outcome of classifying a single image: the best class,
// its confidence, and the probability of every class the model knows.
// Probabilities are in [0, 1].
type Prediction struct {
	Class       string
	Confidence  float64
	Probability map[string]float64
}

// NoiseFloor is the probability below which a class is not worth surfacing
// to a caller.
const NoiseFloor = 0.01

// Ranked returns the classes whose probability exceeds NoiseFloor,
// sorted by probability descending.
func (p Prediction) Ranked() []string {
	classes := make([]string, 0, len(p.Probability))
	for name, prob := range p.Probability {
		if prob > NoiseFloor {
			classes = append(classes, name)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		return p.Probability[classes[i]] > p.Probability[classes[j]]
	})
	return classes
}
