package extract

// Fixed confidence per smart-scraper strategy. The chain runs in
// descending order, so the first validating result is also the most
// trustworthy one available.
var strategyConfidence = map[Strategy]float64{
	StrategyStructured: 0.9,
	StrategySemantic:   0.7,
	StrategyDensity:    0.5,
	StrategyLongest:    0.3,
}

// Found describes what an extraction produced, for scoring.
type Found struct {
	Strategy   Strategy
	ContentLen int
	HasTitle   bool
	// RecipeConfidence carries the stored recipe's reliability when
	// Strategy is StrategyRecipe.
	RecipeConfidence float64
}

// Score is the single scoring rule: recipe extractions inherit the
// recipe's earned confidence, smart strategies carry their fixed rank,
// and anything without usable content scores zero.
func Score(f Found) float64 {
	if f.ContentLen == 0 && !f.HasTitle {
		return 0
	}
	if f.Strategy == StrategyRecipe {
		return clamp01(f.RecipeConfidence)
	}
	return strategyConfidence[f.Strategy]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
