package model

import "math"

// Wear bounds of the float wear value carried by inspected items.
// Factory New items sometimes report a wear of 0, hence the clamp.
const (
	MinWear = 0.2
	MaxWear = 1.0
)

// ClampWear clamps a raw wear value into the valid range.
func ClampWear(wear float64) float64 {
	return math.Min(math.Max(wear, MinWear), MaxWear)
}

// WearBucket converts a float wear into the integer wear level 0..4
// used by the warpaint compositor. The small epsilon absorbs float
// rounding so bucket boundaries like 0.6 land in the upper bucket.
func WearBucket(wear float64) int {
	bucket := int((ClampWear(wear)-MinWear)*5 + 1e-9)
	if bucket > 4 {
		bucket = 4
	}
	return bucket
}
