package portfolio

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/foliokit/folio/internal/models"
)

const (
	sumPenaltyWeight = 1000.0
	targetTolerance  = 1e-3 // acceptable |annualized return - target| after solving
)

// Optimize performs Markowitz mean-variance optimization over daily
// returns from start to now and commits the solved weights. With no
// target return the annualized Sharpe ratio is maximized; with one, the
// squared deviation of annualized return from the target is minimized.
// Constraints: weights sum to 1, each weight in [0, 1]. The whole
// operation holds the exclusive lock; weights are only written after
// the solver converges, so failure leaves the portfolio untouched.
func (s *Service) Optimize(ctx context.Context, start time.Time, targetReturn *float64) ([]models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.assets) == 0 {
		return nil, models.ErrEmptyPortfolio
	}

	symbols := symbolsOf(s.assets)
	table, err := s.market.FetchDailyCloses(ctx, symbols, start, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return nil, models.ErrNoHistoricalData
	}
	closes, err := isolateClosePrices(table)
	if err != nil {
		return nil, models.ErrNoHistoricalData
	}

	returns := dailyReturns(closes)
	n := len(symbols)

	mu := make([]float64, n)
	for col := 0; col < n; col++ {
		mu[col] = stat.Mean(returns.Column(col), nil)
	}
	sigma := covarianceMatrix(returns)

	solution, err := solveWeights(mu, sigma, weightsOf(s.assets), targetReturn)
	if err != nil {
		return nil, err
	}

	// Commit in symbol order: solution[i] belongs to the asset whose
	// returns built column i.
	for i := range s.assets {
		s.assets[i].Weight = solution[i]
	}
	s.persistLocked(ctx)

	s.logger.Info().Int("assets", n).Msg("Portfolio weights optimized")
	return append([]models.Asset(nil), s.assets...), nil
}

// covarianceMatrix builds the sample covariance of daily returns,
// column-pairwise.
func covarianceMatrix(returns *models.ReturnSeries) *mat.SymDense {
	n := len(returns.Symbols)
	sigma := mat.NewSymDense(n, nil)
	cols := make([][]float64, n)
	for i := 0; i < n; i++ {
		cols[i] = returns.Column(i)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sigma.SetSym(i, j, stat.Covariance(cols[i], cols[j], nil))
		}
	}
	return sigma
}

// annualizedReturn returns 252 x the weighted mean daily return.
func annualizedReturn(weights, mu []float64) float64 {
	var daily float64
	for i := range weights {
		daily += weights[i] * mu[i]
	}
	return daily * tradingDaysPerYear
}

// annualizedVolatility returns sqrt(w' (252 Sigma) w).
func annualizedVolatility(weights []float64, sigma *mat.SymDense) float64 {
	var variance float64
	n := len(weights)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * sigma.At(i, j)
		}
	}
	return math.Sqrt(math.Max(variance*tradingDaysPerYear, 0))
}

// solveWeights minimizes the mean-variance objective with a penalty on
// the sum-to-one constraint and projection onto the [0,1] box. BFGS
// first (gradient via finite differences), NelderMead on failure.
func solveWeights(mu []float64, sigma *mat.SymDense, current []float64, targetReturn *float64) ([]float64, error) {
	n := len(mu)

	// One asset admits exactly one feasible weight vector.
	if n == 1 {
		w := []float64{1}
		if targetReturn != nil {
			if math.Abs(annualizedReturn(w, mu)-*targetReturn) > targetTolerance {
				return nil, &models.OptimizationFailedError{
					Reason: fmt.Sprintf("target return %.4f is unattainable with the held asset", *targetReturn),
				}
			}
		}
		return w, nil
	}

	objective := func(x []float64) float64 {
		w := projectToBox(x)

		var obj float64
		if targetReturn == nil {
			vol := annualizedVolatility(w, sigma)
			obj = -annualizedReturn(w, mu) / math.Max(vol, 1e-10)
		} else {
			diff := annualizedReturn(w, mu) - *targetReturn
			obj = diff * diff
		}

		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return obj + sumPenaltyWeight*(sum-1)*(sum-1)
	}

	// BFGS needs a gradient; the box projection inside the objective
	// makes the analytic form piecewise, so estimate it numerically.
	problem := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, nil)
		},
	}

	// Initial guess: current weights if they already sum to 1,
	// otherwise equal weights.
	initial := make([]float64, n)
	if weightsSumToOne(current) {
		copy(initial, current)
	} else {
		for i := range initial {
			initial[i] = 1.0 / float64(n)
		}
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, &models.OptimizationFailedError{Reason: err.Error()}
		}
		if !converged(result) {
			return nil, &models.OptimizationFailedError{Reason: fmt.Sprintf("solver did not converge: status=%v", result.Status)}
		}
	}

	weights := projectToBox(result.X)
	sum := 0.0
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, &models.OptimizationFailedError{Reason: "solver produced a non-finite weight"}
		}
		sum += w
	}
	if sum < 1e-10 {
		return nil, &models.OptimizationFailedError{Reason: "solver produced a degenerate all-zero weight vector"}
	}
	for i := range weights {
		weights[i] /= sum
	}

	// The penalty formulation can "converge" on a flat objective even
	// when the target is infeasible; reject those solutions.
	if targetReturn != nil {
		if diff := math.Abs(annualizedReturn(weights, mu) - *targetReturn); diff > targetTolerance {
			return nil, &models.OptimizationFailedError{
				Reason: fmt.Sprintf("target return %.4f is unattainable (best deviation %.4f)", *targetReturn, diff),
			}
		}
	}

	return weights, nil
}

func converged(result *optimize.Result) bool {
	switch result.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold, optimize.StepConvergence:
		return true
	default:
		return false
	}
}

// projectToBox clamps each weight to [0, 1].
func projectToBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i, v := range x {
		proj[i] = math.Max(0, math.Min(1, v))
	}
	return proj
}
