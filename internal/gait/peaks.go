package gait

import (
	"math"
	"sort"
)

// FindPeaks returns the indices of local maxima of x that are at least
// height and at least distance samples apart. A flat-topped maximum reports
// the lower middle index of its plateau; endpoints are never peaks. When
// peaks are closer than distance the higher one wins.
func FindPeaks(x []float64, height float64, distance int) []int {
	var peaks []int
	n := len(x)
	for i := 1; i < n-1; {
		if !(x[i-1] < x[i]) {
			i++
			continue
		}
		ahead := i + 1
		for ahead < n-1 && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			peak := (i + ahead - 1) / 2
			if x[peak] >= height {
				peaks = append(peaks, peak)
			}
			i = ahead
			continue
		}
		i++
	}

	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}
	return selectByDistance(x, peaks, distance)
}

func selectByDistance(x []float64, peaks []int, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// Threshold is mean + k times the population standard deviation of x.
func Threshold(x []float64, k float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	mean, std := popMeanStd(x)
	return mean + k*std
}
