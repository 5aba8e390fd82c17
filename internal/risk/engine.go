package risk

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmarsh/chainboard/internal/logging"
	"github.com/dmarsh/chainboard/internal/metrics"
	"github.com/dmarsh/chainboard/internal/traces"
)

// standardTransferGas is the gas limit of a plain value transfer.
const standardTransferGas = "21000"

// Engine orchestrates one assessment: validates the request, fans out the
// collaborator lookups, combines the results, and derives advice and
// warnings. Holds no cross-request state; safe for concurrent use.
type Engine struct {
	analyzer AddressAnalyzer
	gas      GasEstimator
	advisor  Advisor // nil disables the AI path; fallback advice is used
}

// Option configures the engine.
type Option func(*Engine)

// WithAdvisor enables AI-generated recommendations. Without it, every
// assessment uses the deterministic fallback advice.
func WithAdvisor(a Advisor) Option {
	return func(e *Engine) { e.advisor = a }
}

// NewEngine creates an assessment engine backed by the given collaborators.
func NewEngine(analyzer AddressAnalyzer, gas GasEstimator, opts ...Option) *Engine {
	e := &Engine{analyzer: analyzer, gas: gas}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assess evaluates one candidate transaction.
//
// The recipient lookup, the optional sender lookup, and the gas lookup run
// concurrently; the critical path is the slowest of the three, not their
// sum. Any lookup failure aborts the assessment with an *AnalysisError.
// The advisor call runs after the join since it consumes the combined
// score, and its failures never propagate.
func (e *Engine) Assess(ctx context.Context, req *Request) (*Assessment, error) {
	if strings.TrimSpace(req.ToAddress) == "" {
		return nil, ErrMissingToAddress
	}

	ctx, span := traces.StartSpan(ctx, "risk.Assess",
		traces.ToAddress(req.ToAddress),
		traces.Amount(req.Amount),
	)
	defer span.End()

	var (
		toProfile   *AddressProfile
		fromProfile *AddressProfile
		gasOpt      any
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := e.analyzer.Analyze(gctx, req.ToAddress)
		if err != nil {
			return &AnalysisError{Stage: "to_address", Err: err}
		}
		toProfile = p
		return nil
	})

	if req.FromAddress != "" {
		g.Go(func() error {
			p, err := e.analyzer.Analyze(gctx, req.FromAddress)
			if err != nil {
				return &AnalysisError{Stage: "from_address", Err: err}
			}
			fromProfile = p
			return nil
		})
	} else {
		fromProfile = syntheticSender()
	}

	g.Go(func() error {
		opt, err := e.gas.Optimization(gctx)
		if err != nil {
			return &AnalysisError{Stage: "gas", Err: err}
		}
		gasOpt = opt
		return nil
	})

	if err := g.Wait(); err != nil {
		logging.L(ctx).Warn("risk assessment aborted", "error", err)
		return nil, err
	}

	overall := Combine(fromProfile, toProfile, req.Amount)

	assessment := &Assessment{
		FromAddress:     *fromProfile,
		ToAddress:       *toProfile,
		Amount:          req.Amount,
		EstimatedGas:    standardTransferGas,
		GasOptimization: gasOpt,
		OverallRisk:     overall,
		Recommendations: e.recommendations(ctx, toProfile, fromProfile, req.Amount, overall),
		Warnings:        Warnings(fromProfile, toProfile, overall),
	}

	span.SetAttributes(traces.RiskCategory(string(overall.Category)))
	metrics.AssessmentsTotal.WithLabelValues(string(overall.Category)).Inc()
	logging.L(ctx).Info("risk assessment completed",
		"to", req.ToAddress,
		"score", overall.Overall,
		"category", overall.Category,
		"warnings", len(assessment.Warnings),
	)

	return assessment, nil
}
