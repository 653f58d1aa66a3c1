package inventory

import (
	"math"
	"testing"

	"quote-engine-go/market"
)

func acct(free, locked, loan float64) market.Account {
	return market.Account{
		Base:  market.Balance{Free: free, Locked: locked, Loan: loan},
		Quote: market.Balance{Free: 1000},
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		acct     market.Account
		maxInv   float64
		wantNet  float64
		wantNorm float64
	}{
		{name: "flat", acct: acct(0, 0, 0), maxInv: 10, wantNet: 0, wantNorm: 0},
		{name: "long", acct: acct(3, 2, 0), maxInv: 10, wantNet: 5, wantNorm: 0.5},
		{name: "short via loan", acct: acct(1, 0, 4), maxInv: 10, wantNet: -3, wantNorm: -0.3},
		{name: "clamped long", acct: acct(25, 0, 0), maxInv: 10, wantNet: 25, wantNorm: 1},
		{name: "clamped short", acct: acct(0, 0, 30), maxInv: 10, wantNet: -30, wantNorm: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compute(tt.acct, tt.maxInv)
			if p.Sanitized {
				t.Fatal("well-formed account flagged sanitized")
			}
			if p.Net != tt.wantNet {
				t.Errorf("Net = %f, want %f", p.Net, tt.wantNet)
			}
			if math.Abs(p.Normalized-tt.wantNorm) > 1e-12 {
				t.Errorf("Normalized = %f, want %f", p.Normalized, tt.wantNorm)
			}
		})
	}
}

func TestComputeMalformed(t *testing.T) {
	bad := []market.Account{
		acct(-1, 0, 0),
		acct(0, -2, 0),
		acct(0, 0, -3),
		acct(math.NaN(), 0, 0),
		{Base: market.Balance{Free: 1}, Quote: market.Balance{Free: -5}},
	}
	for _, a := range bad {
		p := Compute(a, 10)
		if !p.Sanitized {
			t.Errorf("account %+v not flagged sanitized", a)
		}
		if p.Net != 0 || p.Normalized != 0 {
			t.Errorf("sanitized position not zeroed: %+v", p)
		}
	}
}

func TestRebalanceRequired(t *testing.T) {
	if Compute(acct(9, 0, 0), 10).RebalanceRequired(10) {
		t.Error("rebalance flagged below max inventory")
	}
	if !Compute(acct(10, 0, 0), 10).RebalanceRequired(10) {
		t.Error("rebalance not flagged at max inventory")
	}
	if !Compute(acct(0, 0, 12), 10).RebalanceRequired(10) {
		t.Error("rebalance not flagged for short breach")
	}
}

func TestSkewAndThrottle(t *testing.T) {
	// Long half of max with strength 0.5 on a 0.2 spread: shift down 0.05.
	if got := SkewOffset(0.5, 0.5, 0.2); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("SkewOffset = %f, want 0.05", got)
	}
	if got := SkewOffset(-1, 0.5, 0.2); math.Abs(got+0.1) > 1e-12 {
		t.Errorf("SkewOffset short = %f, want -0.1", got)
	}

	if got := Throttle(0); got != 1 {
		t.Errorf("Throttle(0) = %f, want 1", got)
	}
	if got := Throttle(0.75); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Throttle(0.75) = %f, want 0.25", got)
	}
	if got := Throttle(1); got != 0 {
		t.Errorf("Throttle(1) = %f, want 0", got)
	}
	if got := Throttle(-1.5); got != 0 {
		t.Errorf("Throttle(-1.5) = %f, want 0", got)
	}
}
