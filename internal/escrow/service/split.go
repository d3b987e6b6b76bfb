package service

import (
	"fmt"
	"math"

	"fieldserve_backend/platform/apperr"
)

// ComputeSplit divides a captured amount into the portion released to the
// technician and the warranty holdback. Amounts are in minor currency units.
// The invariant released + held == total holds for every valid input.
func ComputeSplit(total int64, holdPct float64) (released, held int64, err error) {
	if total < 0 {
		return 0, 0, apperr.Validation("amount must not be negative")
	}
	if holdPct < 0 || holdPct > 100 {
		return 0, 0, apperr.Validation(fmt.Sprintf("hold percentage %.1f out of range [0,100]", holdPct))
	}

	held = int64(math.Round(float64(total) * holdPct / 100))
	released = total - held
	return released, held, nil
}

// NetToTechnician subtracts the platform commission from a gross amount for
// display. Commission applies to what the technician sees, never to the
// escrow accounting itself: splits are computed on the gross.
func NetToTechnician(gross int64, commissionPct float64) int64 {
	if gross <= 0 {
		return 0
	}
	commission := int64(math.Round(float64(gross) * commissionPct / 100))
	return gross - commission
}
