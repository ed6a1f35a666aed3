package mcpserver

import "testing"

func TestRateLimiterExemptNeverThrottled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterOptions{WritePerMin: 1, ReadPerMin: 1, BurstFactor: 1})
	for i := 0; i < 100; i++ {
		if err := rl.Allow("s1", ClassExempt, 1); err != nil {
			t.Fatalf("exempt call %d should never throttle: %v", i, err)
		}
	}
}

func TestRateLimiterExhaustsBucket(t *testing.T) {
	rl := NewRateLimiter(RateLimiterOptions{WritePerMin: 1, ReadPerMin: 1, BurstFactor: 1})
	if err := rl.Allow("s1", ClassRead, 1); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	if err := rl.Allow("s1", ClassRead, 1); err == nil {
		t.Fatal("second immediate call should exceed the burst=1 bucket")
	}
}

func TestRateLimiterIndependentPerSession(t *testing.T) {
	rl := NewRateLimiter(RateLimiterOptions{WritePerMin: 1, ReadPerMin: 1, BurstFactor: 1})
	if err := rl.Allow("s1", ClassRead, 1); err != nil {
		t.Fatalf("s1 first call: %v", err)
	}
	if err := rl.Allow("s2", ClassRead, 1); err != nil {
		t.Fatalf("s2 should have its own bucket: %v", err)
	}
}

func TestClassifyTool(t *testing.T) {
	cases := map[string]ToolClass{
		"write": ClassWrite, "import": ClassWrite, "consolidate": ClassWrite,
		"recall": ClassRead, "search": ClassRead, "ask": ClassRead,
		"stats": ClassExempt, "mount": ClassExempt,
	}
	for tool, want := range cases {
		if got := ClassifyTool(tool); got != want {
			t.Errorf("ClassifyTool(%q) = %q, want %q", tool, got, want)
		}
	}
}

func TestCheckTurnProposalsCap(t *testing.T) {
	rl := NewRateLimiter(RateLimiterOptions{PerTurnCap: 3})
	if err := rl.CheckTurnProposals(3); err != nil {
		t.Fatalf("3 proposals should pass: %v", err)
	}
	if err := rl.CheckTurnProposals(4); err == nil {
		t.Fatal("expected error exceeding per-turn cap")
	}
}
