package recipe

// verifiedFloor is the minimum confidence of a verified recipe.
const verifiedFloor = 0.8

// confirmationsRequired is how many distinct users must confirm a recipe
// before it becomes verified.
const confirmationsRequired = 3

// Confidence computes a recipe's confidence from its outcome history.
// The result is always in [0,1] and, for a fixed usage count, is
// monotonically non-decreasing in the success count.
//
//	confidence = min(0.5 + 0.5 × successCount/usageCount, 1.0)
//
// Verified recipes floor at 0.8.
func Confidence(successCount, usageCount int64, verified bool) float64 {
	c := 0.5
	if usageCount > 0 {
		ratio := float64(successCount) / float64(usageCount)
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		c = 0.5 + 0.5*ratio
	}
	if verified && c < verifiedFloor {
		c = verifiedFloor
	}
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	return c
}
