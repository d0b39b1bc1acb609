// Package regression computes benchmark regression statistics for a
// portfolio curve: alpha, beta, R², correlation, tracking error and
// information ratio against a benchmark's price history.
package regression

import (
	"errors"
	"math"
	"sort"
	"time"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/metrics"
)

// ErrInsufficientOverlap is returned when the portfolio and benchmark share
// fewer aligned return observations than MinOverlap. The caller aborts the
// regression only; other metrics still report with alpha/beta unavailable.
var ErrInsufficientOverlap = errors.New("insufficient overlap between portfolio and benchmark returns")

// MinOverlap is the minimum number of aligned daily returns required.
const MinOverlap = 10

// tradingDaysPerYear annualizes daily regression statistics.
const tradingDaysPerYear = 252

// Result holds the regression statistics. Alpha is Jensen's alpha,
// annualized; TrackingError is annualized as well.
type Result struct {
	Alpha            float64
	Beta             float64
	RSquared         float64
	Correlation      float64
	TrackingError    float64
	InformationRatio float64
}

// Regress aligns daily simple returns of the portfolio curve and the
// benchmark history on their date intersection and runs an ordinary least
// squares fit of portfolio returns on benchmark returns. Read-only and
// side-effect-free; the overlap guard is its only failure mode.
func Regress(curve *domain.PortfolioCurve, benchmark domain.PriceHistory, riskFreeAnnualRate float64) (*Result, error) {
	portfolioReturns := curve.DailyReturns()
	benchmarkReturns := dailyReturns(benchmark)

	dates := make([]time.Time, 0, len(portfolioReturns))
	for date := range portfolioReturns {
		if _, ok := benchmarkReturns[date]; ok {
			dates = append(dates, date)
		}
	}
	if len(dates) < MinOverlap {
		return nil, ErrInsufficientOverlap
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	p := make([]float64, len(dates))
	b := make([]float64, len(dates))
	for i, date := range dates {
		p[i] = portfolioReturns[date]
		b[i] = benchmarkReturns[date]
	}

	n := float64(len(dates))
	meanP := mean(p)
	meanB := mean(b)

	var covPB, varB, varP float64
	for i := range p {
		dp := p[i] - meanP
		db := b[i] - meanB
		covPB += dp * db
		varB += db * db
		varP += dp * dp
	}
	covPB /= n
	varB /= n
	varP /= n

	beta := metrics.Ratio(covPB, varB)
	correlation := metrics.Ratio(covPB, math.Sqrt(varB*varP))
	rSquared := correlation * correlation

	// Jensen's alpha on daily excess returns, annualized.
	rfDaily := riskFreeAnnualRate / tradingDaysPerYear
	alpha := ((meanP - rfDaily) - beta*(meanB - rfDaily)) * tradingDaysPerYear

	diffs := make([]float64, len(p))
	for i := range p {
		diffs[i] = p[i] - b[i]
	}
	trackingError := populationStddev(diffs) * math.Sqrt(tradingDaysPerYear)

	return &Result{
		Alpha:            alpha,
		Beta:             beta,
		RSquared:         rSquared,
		Correlation:      correlation,
		TrackingError:    trackingError,
		InformationRatio: metrics.Ratio(alpha, trackingError),
	}, nil
}

// dailyReturns computes simple close-over-close returns keyed by the later date.
func dailyReturns(history domain.PriceHistory) map[time.Time]float64 {
	returns := make(map[time.Time]float64, len(history))
	for i := 1; i < len(history); i++ {
		prev := history[i-1].Close
		if prev == 0 {
			continue
		}
		returns[history[i].Date] = history[i].Close/prev - 1
	}
	return returns
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - avg
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
