package service

import "testing"

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name         string
		total        int64
		holdPct      float64
		wantReleased int64
		wantHeld     int64
	}{
		{"twenty percent hold", 10000, 20, 8000, 2000},
		{"fifteen percent hold", 10000, 15, 8500, 1500},
		{"rounding up", 999, 25, 749, 250},
		{"rounding down", 1001, 33, 671, 330},
		{"zero total", 0, 20, 0, 0},
		{"zero hold", 5000, 0, 5000, 0},
		{"full hold", 5000, 100, 0, 5000},
		{"fractional pct", 12345, 12.5, 10802, 1543},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			released, held, err := ComputeSplit(tt.total, tt.holdPct)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %v) error: %v", tt.total, tt.holdPct, err)
			}
			if released != tt.wantReleased || held != tt.wantHeld {
				t.Errorf("ComputeSplit(%d, %v) = (%d, %d), want (%d, %d)",
					tt.total, tt.holdPct, released, held, tt.wantReleased, tt.wantHeld)
			}
		})
	}
}

func TestComputeSplitConservation(t *testing.T) {
	totals := []int64{1, 7, 99, 100, 999, 10000, 123457, 9999999}
	pcts := []float64{0, 7.5, 15, 20, 25, 30, 40, 99, 100}
	for _, total := range totals {
		for _, pct := range pcts {
			released, held, err := ComputeSplit(total, pct)
			if err != nil {
				t.Fatalf("ComputeSplit(%d, %v) error: %v", total, pct, err)
			}
			if released+held != total {
				t.Errorf("ComputeSplit(%d, %v): released %d + held %d != total", total, pct, released, held)
			}
			if released < 0 || held < 0 {
				t.Errorf("ComputeSplit(%d, %v): negative component (%d, %d)", total, pct, released, held)
			}
		}
	}
}

func TestComputeSplitRejectsInvalidInput(t *testing.T) {
	if _, _, err := ComputeSplit(-1, 20); err == nil {
		t.Error("negative total accepted")
	}
	if _, _, err := ComputeSplit(1000, -5); err == nil {
		t.Error("negative hold percentage accepted")
	}
	if _, _, err := ComputeSplit(1000, 101); err == nil {
		t.Error("hold percentage above 100 accepted")
	}
}

func TestNetToTechnician(t *testing.T) {
	tests := []struct {
		gross         int64
		commissionPct float64
		want          int64
	}{
		{10000, 10, 9000},
		{8000, 10, 7200},
		{2000, 10, 1800},
		{999, 10, 899},
		{0, 10, 0},
		{-50, 10, 0},
		{5000, 0, 5000},
	}
	for _, tt := range tests {
		if got := NetToTechnician(tt.gross, tt.commissionPct); got != tt.want {
			t.Errorf("NetToTechnician(%d, %v) = %d, want %d", tt.gross, tt.commissionPct, got, tt.want)
		}
	}
}
