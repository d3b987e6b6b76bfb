package service

import (
	"testing"

	"fieldserve_backend/internal/risk/repository"
)

func rating(v float64) *float64 { return &v }

func TestScoreTechnicianPointTable(t *testing.T) {
	cases := []struct {
		name    string
		metrics TechnicianMetrics
		want    int
	}{
		{"clean history", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1}, 0},
		{"completion below 80", TechnicianMetrics{CompletionRate: 0.79, OnTimeRate: 1}, 30},
		{"completion below 90", TechnicianMetrics{CompletionRate: 0.89, OnTimeRate: 1}, 15},
		{"cancellation above 20", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, CancellationRate: 0.21}, 20},
		{"cancellation above 10", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, CancellationRate: 0.11}, 10},
		{"warranty complaints above 10", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, WarrantyComplaintRate: 0.11}, 25},
		{"warranty complaints above 5", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, WarrantyComplaintRate: 0.06}, 15},
		{"disputes above 15", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, DisputeRate: 0.16}, 20},
		{"disputes above 8", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, DisputeRate: 0.09}, 10},
		{"rating below 4.0", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, AvgRating: rating(3.9)}, 15},
		{"rating below 4.5", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, AvgRating: rating(4.4)}, 8},
		{"no rating no penalty", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1}, 0},
		{"late starts", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 0.69}, 10},
		{"slow response", TechnicianMetrics{CompletionRate: 1, OnTimeRate: 1, AvgResponseHours: rating(25)}, 10},
	}

	for _, tc := range cases {
		if got := ScoreTechnician(tc.metrics); got != tc.want {
			t.Errorf("%s: ScoreTechnician = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestScoreTechnicianCappedAt100(t *testing.T) {
	worst := TechnicianMetrics{
		CompletionRate:        0.1,
		CancellationRate:      0.9,
		WarrantyComplaintRate: 0.5,
		DisputeRate:           0.5,
		AvgRating:             rating(1.0),
		OnTimeRate:            0.1,
		AvgResponseHours:      rating(100),
	}
	if got := ScoreTechnician(worst); got != 100 {
		t.Fatalf("ScoreTechnician worst case = %d, want capped 100", got)
	}
}

func TestScoreDealerPointTable(t *testing.T) {
	cases := []struct {
		name    string
		metrics DealerMetrics
		want    int
	}{
		{"clean history", DealerMetrics{}, 0},
		{"disputes above 0.2", DealerMetrics{DisputeFrequency: 0.21}, 30},
		{"disputes above 0.1", DealerMetrics{DisputeFrequency: 0.11}, 15},
		{"payment delays above 30", DealerMetrics{PaymentDelayRate: 0.31}, 25},
		{"payment delays above 15", DealerMetrics{PaymentDelayRate: 0.16}, 12},
		{"cash above 50", DealerMetrics{CashFrequency: 0.51}, 20},
		{"cash above 25", DealerMetrics{CashFrequency: 0.26}, 10},
		{"complaints above 0.3", DealerMetrics{ComplaintFrequency: 0.31}, 25},
		{"complaints above 0.15", DealerMetrics{ComplaintFrequency: 0.16}, 12},
	}

	for _, tc := range cases {
		if got := ScoreDealer(tc.metrics); got != tc.want {
			t.Errorf("%s: ScoreDealer = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestRecommendedHoldPctMonotonic(t *testing.T) {
	prev := RecommendedHoldPct(0)
	for risk := 1; risk <= 100; risk++ {
		current := RecommendedHoldPct(risk)
		if current < prev {
			t.Fatalf("hold policy not monotonic: risk %d gives %.0f%% after %.0f%%", risk, current, prev)
		}
		prev = current
	}
}

func TestRecommendedHoldPctBands(t *testing.T) {
	cases := []struct {
		risk int
		want float64
	}{
		{0, 15}, {14, 15}, {15, 20}, {29, 20}, {30, 25}, {49, 25},
		{50, 30}, {69, 30}, {70, 40}, {100, 40},
	}

	for _, tc := range cases {
		if got := RecommendedHoldPct(tc.risk); got != tc.want {
			t.Errorf("RecommendedHoldPct(%d) = %.0f, want %.0f", tc.risk, got, tc.want)
		}
	}
}

func TestAutoReleaseEligibility(t *testing.T) {
	if !AutoReleaseEligible(14) {
		t.Error("risk 14 should be auto-release eligible")
	}
	if AutoReleaseEligible(15) {
		t.Error("risk 15 should not be auto-release eligible")
	}
}

func TestTechnicianMetricsFromStatsNeutralWhenNoHistory(t *testing.T) {
	m := TechnicianMetricsFromStats(repository.TechnicianStats{})
	if m.CompletionRate != 1 || m.CancellationRate != 0 || m.OnTimeRate != 1 {
		t.Fatalf("empty history should be neutral, got %+v", m)
	}
	if ScoreTechnician(m) != 0 {
		t.Fatalf("empty history should score 0, got %d", ScoreTechnician(m))
	}
}

func TestTechnicianMetricsFromStatsRates(t *testing.T) {
	stats := repository.TechnicianStats{
		Completed:          8,
		Cancelled:          2,
		WarrantyComplaints: 1,
		Disputes:           1,
		OnTimeCompleted:    6,
	}
	m := TechnicianMetricsFromStats(stats)

	if m.CompletionRate != 0.8 {
		t.Errorf("completion rate = %f, want 0.8", m.CompletionRate)
	}
	if m.CancellationRate != 0.2 {
		t.Errorf("cancellation rate = %f, want 0.2", m.CancellationRate)
	}
	if m.OnTimeRate != 0.75 {
		t.Errorf("on-time rate = %f, want 0.75", m.OnTimeRate)
	}
}
