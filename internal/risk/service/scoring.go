package service

import "fieldserve_backend/internal/risk/repository"

// Risk scores are additive point systems over reliability metrics, each
// capped at 100. The thresholds below are product policy; change them in
// lockstep with the dashboards that explain holds to participants.

// TechnicianMetrics are derived rates over a technician's job history.
type TechnicianMetrics struct {
	CompletionRate        float64  `json:"completionRate"`
	CancellationRate      float64  `json:"cancellationRate"`
	WarrantyComplaintRate float64  `json:"warrantyComplaintRate"`
	DisputeRate           float64  `json:"disputeRate"`
	AvgRating             *float64 `json:"avgRating,omitempty"`
	OnTimeRate            float64  `json:"onTimeRate"`
	AvgResponseHours      *float64 `json:"avgResponseHours,omitempty"`
	TotalJobs             int      `json:"totalJobs"`
}

// DealerMetrics are derived rates over a dealer's posting history.
type DealerMetrics struct {
	DisputeFrequency   float64 `json:"disputeFrequency"`
	PaymentDelayRate   float64 `json:"paymentDelayRate"`
	CashFrequency      float64 `json:"cashFrequency"`
	ComplaintFrequency float64 `json:"complaintFrequency"`
	JobsPosted         int     `json:"jobsPosted"`
}

// TechnicianMetricsFromStats derives rates from raw counts. A technician
// with no terminal history scores neutral: perfect completion, zero
// everything else, and no rating/response penalties.
func TechnicianMetricsFromStats(s repository.TechnicianStats) TechnicianMetrics {
	m := TechnicianMetrics{
		CompletionRate: 1,
		OnTimeRate:     1,
		AvgRating:      s.AvgRating,
		TotalJobs:      s.TotalTerminal(),
	}

	total := s.TotalTerminal()
	if total == 0 {
		return m
	}

	m.CompletionRate = float64(s.Completed) / float64(total)
	m.CancellationRate = float64(s.Cancelled) / float64(total)
	m.WarrantyComplaintRate = float64(s.WarrantyComplaints) / float64(total)
	m.DisputeRate = float64(s.Disputes) / float64(total)
	m.AvgResponseHours = s.AvgResponseHours
	if s.Completed > 0 {
		m.OnTimeRate = float64(s.OnTimeCompleted) / float64(s.Completed)
	}
	return m
}

// DealerMetricsFromStats derives rates from raw counts.
func DealerMetricsFromStats(s repository.DealerStats) DealerMetrics {
	m := DealerMetrics{JobsPosted: s.JobsPosted}
	if s.JobsPosted > 0 {
		m.DisputeFrequency = float64(s.Disputes) / float64(s.JobsPosted)
		m.ComplaintFrequency = float64(s.WarrantyIssues) / float64(s.JobsPosted)
	}
	if s.Payments > 0 {
		m.PaymentDelayRate = float64(s.LatePayments) / float64(s.Payments)
		m.CashFrequency = float64(s.CashPayments) / float64(s.Payments)
	}
	return m
}

// ScoreTechnician applies the technician point table. Higher is riskier.
func ScoreTechnician(m TechnicianMetrics) int {
	score := 0

	switch {
	case m.CompletionRate < 0.80:
		score += 30
	case m.CompletionRate < 0.90:
		score += 15
	}

	switch {
	case m.CancellationRate > 0.20:
		score += 20
	case m.CancellationRate > 0.10:
		score += 10
	}

	switch {
	case m.WarrantyComplaintRate > 0.10:
		score += 25
	case m.WarrantyComplaintRate > 0.05:
		score += 15
	}

	switch {
	case m.DisputeRate > 0.15:
		score += 20
	case m.DisputeRate > 0.08:
		score += 10
	}

	if m.AvgRating != nil {
		switch {
		case *m.AvgRating < 4.0:
			score += 15
		case *m.AvgRating < 4.5:
			score += 8
		}
	}

	if m.OnTimeRate < 0.70 {
		score += 10
	}

	if m.AvgResponseHours != nil && *m.AvgResponseHours > 24 {
		score += 10
	}

	return capScore(score)
}

// ScoreDealer applies the dealer point table. Higher is riskier.
func ScoreDealer(m DealerMetrics) int {
	score := 0

	switch {
	case m.DisputeFrequency > 0.2:
		score += 30
	case m.DisputeFrequency > 0.1:
		score += 15
	}

	switch {
	case m.PaymentDelayRate > 0.30:
		score += 25
	case m.PaymentDelayRate > 0.15:
		score += 12
	}

	switch {
	case m.CashFrequency > 0.50:
		score += 20
	case m.CashFrequency > 0.25:
		score += 10
	}

	switch {
	case m.ComplaintFrequency > 0.3:
		score += 25
	case m.ComplaintFrequency > 0.15:
		score += 12
	}

	return capScore(score)
}

// RecommendedHoldPct maps a job risk score to a warranty-hold percentage.
// Monotonic in risk: a riskier job never gets a smaller hold.
func RecommendedHoldPct(jobRisk int) float64 {
	switch {
	case jobRisk >= 70:
		return 40
	case jobRisk >= 50:
		return 30
	case jobRisk >= 30:
		return 25
	case jobRisk < 15:
		return 15
	default:
		return 20
	}
}

// AutoReleaseEligible reports whether the warranty hold may be released
// automatically at window expiry with no manual gate.
func AutoReleaseEligible(jobRisk int) bool {
	return jobRisk < 15
}

func capScore(score int) int {
	if score > 100 {
		return 100
	}
	return score
}
