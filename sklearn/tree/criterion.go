package tree

import "math"

// impurity computes node impurity from per-class counts and their total.
type impurity func(counts []float64, total float64) float64

func impurityFunc(criterion string) impurity {
	switch criterion {
	case "gini":
		return gini
	case "entropy":
		return entropy
	default:
		return nil
	}
}

// gini returns 1 - sum(p_k^2).
func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sumSq := 0.0
	for _, c := range counts {
		p := c / total
		sumSq += p * p
	}
	return 1 - sumSq
}

// entropy returns -sum(p_k log2 p_k).
func entropy(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			h -= p * math.Log2(p)
		}
	}
	return h
}
