package manager

import "math"

const (
	bytesPerMB = 1024 * 1024
	bytesPerGB = 1024 * 1024 * 1024
	// int32Wrap undoes the sign overflow of a 32-bit adapter RAM field.
	int32Wrap = 1 << 32
)

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// bytesToGB converts bytes to GiB rounded to two decimals.
func bytesToGB(b uint64) float64 {
	return roundTo(float64(b)/bytesPerGB, 2)
}

func bytesToGBPtr(b uint64) *float64 {
	v := bytesToGB(b)
	return &v
}

func bytesToMB(b uint64) float64 {
	return roundTo(float64(b)/bytesPerMB, 1)
}

// adapterRAMToMB turns an OS-reported adapter RAM figure into whole MB. A
// negative value is a 32-bit overflow and gets 2^32 added back first.
func adapterRAMToMB(raw *int64) *uint64 {
	if raw == nil {
		return nil
	}
	v := *raw
	if v < 0 {
		if v < math.MinInt32 {
			return nil
		}
		v += int32Wrap
	}
	mb := uint64(v) / bytesPerMB
	return &mb
}

// wearPercent is the capacity lost relative to design, to one decimal. Both
// capacities must be positive.
func wearPercent(design, full *int64) *float64 {
	if design == nil || full == nil || *design <= 0 || *full <= 0 {
		return nil
	}
	w := roundTo((1-float64(*full)/float64(*design))*100, 1)
	return &w
}

// ptr returns a pointer to a copy of v.
func ptr[T any](v T) *T {
	return &v
}

// positive returns a pointer to v, or nil when v is not above zero.
func positive[T int | int32 | uint32 | uint64 | float64](v T) *T {
	if v <= 0 {
		return nil
	}
	return &v
}
