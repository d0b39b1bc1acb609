package optimize

import (
	"fmt"
	"math"
)

// Heatmap pivots trial scores into a grid keyed by two varying parameters.
// Cells hit by multiple trials hold the average score; untouched cells hold
// NaN.
type Heatmap struct {
	XParam  string
	YParam  string
	XValues []any
	YValues []any
	Scores  [][]float64 // indexed [y][x]
}

// Heatmap builds the two-parameter pivot from all valid trials. Axis values
// keep their declared order from the parameter specs when provided, falling
// back to first-appearance order among trials.
func (r *Result) Heatmap(xParam, yParam string, specs []ParamSpec) *Heatmap {
	h := &Heatmap{XParam: xParam, YParam: yParam}

	for _, spec := range specs {
		switch spec.Name {
		case xParam:
			h.XValues = append(h.XValues, spec.Values...)
		case yParam:
			h.YValues = append(h.YValues, spec.Values...)
		}
	}
	for _, c := range r.Trials {
		if !c.Valid {
			continue
		}
		h.XValues = appendUnseen(h.XValues, c.Params[xParam])
		h.YValues = appendUnseen(h.YValues, c.Params[yParam])
	}
	if len(h.XValues) == 0 || len(h.YValues) == 0 {
		return h
	}

	xIndex := indexByKey(h.XValues)
	yIndex := indexByKey(h.YValues)

	sums := make([][]float64, len(h.YValues))
	counts := make([][]int, len(h.YValues))
	for y := range sums {
		sums[y] = make([]float64, len(h.XValues))
		counts[y] = make([]int, len(h.XValues))
	}

	for _, c := range r.Trials {
		if !c.Valid {
			continue
		}
		x, okX := xIndex[key(c.Params[xParam])]
		y, okY := yIndex[key(c.Params[yParam])]
		if !okX || !okY {
			continue
		}
		sums[y][x] += c.Score
		counts[y][x]++
	}

	h.Scores = make([][]float64, len(h.YValues))
	for y := range h.Scores {
		h.Scores[y] = make([]float64, len(h.XValues))
		for x := range h.Scores[y] {
			if counts[y][x] == 0 {
				h.Scores[y][x] = math.NaN()
				continue
			}
			h.Scores[y][x] = sums[y][x] / float64(counts[y][x])
		}
	}
	return h
}

func key(v any) string { return fmt.Sprintf("%v", v) }

func indexByKey(values []any) map[string]int {
	index := make(map[string]int, len(values))
	for i, v := range values {
		index[key(v)] = i
	}
	return index
}

func appendUnseen(values []any, v any) []any {
	for _, existing := range values {
		if key(existing) == key(v) {
			return values
		}
	}
	return append(values, v)
}
