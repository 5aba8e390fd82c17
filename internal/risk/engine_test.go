package risk

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubAnalyzer struct {
	mu       sync.Mutex
	profiles map[string]*AddressProfile
	err      error
	calls    []string
}

func (s *stubAnalyzer) Analyze(_ context.Context, address string) (*AddressProfile, error) {
	s.mu.Lock()
	s.calls = append(s.calls, address)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.profiles[address]; ok {
		return p, nil
	}
	return profileWith(0, 100), nil
}

func (s *stubAnalyzer) called(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == address {
			return true
		}
	}
	return false
}

type stubGas struct {
	opt any
	err error
}

func (s *stubGas) Optimization(context.Context) (any, error) {
	return s.opt, s.err
}

type stubAdvisor struct {
	reply string
	err   error
	calls int
}

func (s *stubAdvisor) Generate(context.Context, string, int) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestAssessMissingToAddress(t *testing.T) {
	analyzer := &stubAnalyzer{}
	engine := NewEngine(analyzer, &stubGas{})

	_, err := engine.Assess(context.Background(), &Request{ToAddress: ""})
	if !errors.Is(err, ErrMissingToAddress) {
		t.Fatalf("err = %v, want ErrMissingToAddress", err)
	}
	if len(analyzer.calls) != 0 {
		t.Error("no collaborator should be invoked on validation failure")
	}

	_, err = engine.Assess(context.Background(), &Request{ToAddress: "   "})
	if !errors.Is(err, ErrMissingToAddress) {
		t.Fatalf("whitespace toAddress: err = %v, want ErrMissingToAddress", err)
	}
}

func TestAssessSyntheticSender(t *testing.T) {
	analyzer := &stubAnalyzer{profiles: map[string]*AddressProfile{
		"0xAAA": profileWith(30, 95),
	}}
	engine := NewEngine(analyzer, &stubGas{opt: "gas-data"})

	result, err := engine.Assess(context.Background(), &Request{ToAddress: "0xAAA"})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	if len(analyzer.calls) != 1 {
		t.Errorf("analyzer called %d times, want 1 (recipient only)", len(analyzer.calls))
	}
	if result.FromAddress.RiskScore.Overall != 0 {
		t.Errorf("synthetic sender risk = %v, want 0", result.FromAddress.RiskScore.Overall)
	}
	if result.FromAddress.RiskScore.Confidence != fullConfidence {
		t.Errorf("synthetic sender confidence = %v, want %v",
			result.FromAddress.RiskScore.Confidence, fullConfidence)
	}
}

func TestAssessBothAddresses(t *testing.T) {
	analyzer := &stubAnalyzer{profiles: map[string]*AddressProfile{
		"0xTO":   profileWith(60, 85),
		"0xFROM": profileWith(20, 70),
	}}
	engine := NewEngine(analyzer, &stubGas{})

	result, err := engine.Assess(context.Background(), &Request{
		FromAddress: "0xFROM",
		ToAddress:   "0xTO",
	})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	if !analyzer.called("0xTO") || !analyzer.called("0xFROM") {
		t.Fatal("both addresses should be analyzed")
	}
	// 60*0.7 + 20*0.3 = 48
	if result.OverallRisk.Overall != 48 {
		t.Errorf("Overall = %v, want 48", result.OverallRisk.Overall)
	}
	if result.OverallRisk.Confidence != 70 {
		t.Errorf("Confidence = %v, want 70 (min of both)", result.OverallRisk.Confidence)
	}
}

func TestAssessEndToEnd(t *testing.T) {
	// toRisk=50, conf=90, amount 2000: 50*0.7 + 0*0.3 + 20 = 55, MEDIUM
	analyzer := &stubAnalyzer{profiles: map[string]*AddressProfile{
		"0xAAA": profileWith(50, 90),
	}}
	engine := NewEngine(analyzer, &stubGas{opt: map[string]string{"congestion": "low"}})

	result, err := engine.Assess(context.Background(), &Request{
		ToAddress: "0xAAA",
		Amount:    "2000",
	})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}

	if result.OverallRisk.Overall != 55 {
		t.Errorf("Overall = %v, want 55", result.OverallRisk.Overall)
	}
	if result.OverallRisk.Category != CategoryMedium {
		t.Errorf("Category = %s, want MEDIUM", result.OverallRisk.Category)
	}
	if result.OverallRisk.Confidence != 90 {
		t.Errorf("Confidence = %v, want 90", result.OverallRisk.Confidence)
	}
	if result.EstimatedGas != standardTransferGas {
		t.Errorf("EstimatedGas = %q, want %q", result.EstimatedGas, standardTransferGas)
	}
	if result.GasOptimization == nil {
		t.Error("GasOptimization should be passed through")
	}
	if n := len(result.Recommendations); n < 3 || n > 5 {
		t.Errorf("got %d recommendations, want 3-5", n)
	}
}

func TestAssessAnalyzerFailure(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("rpc unavailable")}
	engine := NewEngine(analyzer, &stubGas{})

	_, err := engine.Assess(context.Background(), &Request{ToAddress: "0xAAA"})

	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("err = %v, want *AnalysisError", err)
	}
	if analysisErr.Stage != "to_address" {
		t.Errorf("Stage = %q, want to_address", analysisErr.Stage)
	}
	if !errors.Is(err, analyzer.err) {
		t.Error("AnalysisError should wrap the underlying cause")
	}
}

func TestAssessGasFailure(t *testing.T) {
	engine := NewEngine(&stubAnalyzer{}, &stubGas{err: errors.New("gas oracle down")})

	_, err := engine.Assess(context.Background(), &Request{ToAddress: "0xAAA"})

	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("err = %v, want *AnalysisError", err)
	}
	if analysisErr.Stage != "gas" {
		t.Errorf("Stage = %q, want gas", analysisErr.Stage)
	}
}

func TestAssessAdvisorFailureDoesNotFailRequest(t *testing.T) {
	analyzer := &stubAnalyzer{profiles: map[string]*AddressProfile{
		"0xAAA": profileWith(90, 80),
	}}
	advisor := &stubAdvisor{err: errors.New("quota exceeded")}
	engine := NewEngine(analyzer, &stubGas{}, WithAdvisor(advisor))

	result, err := engine.Assess(context.Background(), &Request{ToAddress: "0xAAA"})
	if err != nil {
		t.Fatalf("advisor outage must not fail the request: %v", err)
	}
	if advisor.calls != 1 {
		t.Errorf("advisor called %d times, want 1", advisor.calls)
	}
	// 90*0.7 = 63 → HIGH tier fallback
	assertSameAdvice(t, result.Recommendations, highAdvice)
}

func TestAssessUsesAdvisorReply(t *testing.T) {
	analyzer := &stubAnalyzer{profiles: map[string]*AddressProfile{
		"0xAAA": profileWith(10, 95),
	}}
	advisor := &stubAdvisor{reply: `["check the address", "start small", "monitor the transaction"]`}
	engine := NewEngine(analyzer, &stubGas{}, WithAdvisor(advisor))

	result, err := engine.Assess(context.Background(), &Request{ToAddress: "0xAAA"})
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	assertSameAdvice(t, result.Recommendations, []string{
		"check the address", "start small", "monitor the transaction",
	})
}

func assertSameAdvice(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d recommendations %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("recommendation[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
