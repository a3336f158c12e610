package policy

import (
	"math"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

// Outcome is the evaluator's verdict on a single cancellation.
type Outcome string

const (
	OutcomeFree        Outcome = "free"
	OutcomeCharge      Outcome = "charge"
	OutcomeNeedsReview Outcome = "needs_review"
)

// epsilon for the threshold boundary. Hours are derived from timestamp
// subtraction, so exact float equality is unreliable.
const epsilon = 0.001

// Threshold returns the free-cancellation window in hours for a tier.
// Unknown tiers fall back to moderate; the evaluator never fails.
func Threshold(tier model.PolicyTier) float64 {
	switch tier {
	case model.PolicyStrict:
		return 48
	case model.PolicyModerate:
		return 24
	case model.PolicyFlexible:
		return 12
	default:
		return 24
	}
}

// Decide evaluates a cancellation against the client's policy tier.
//
// An unresolved manual case (refund pending and not yet reviewed) always wins,
// regardless of how early the cancellation was. A cancellation landing exactly
// on the threshold is escalated rather than silently resolved: the boundary is
// the case most likely to be contested.
func Decide(hoursBefore float64, tier model.PolicyTier, refund model.RefundStatus, reviewed bool) Outcome {
	threshold := Threshold(tier)

	if refund == model.RefundPending && !reviewed {
		return OutcomeNeedsReview
	}
	if math.Abs(hoursBefore-threshold) < epsilon {
		return OutcomeNeedsReview
	}
	if hoursBefore > threshold {
		return OutcomeFree
	}
	if hoursBefore < threshold {
		return OutcomeCharge
	}
	return OutcomeCharge
}

// DecideAppointment applies Decide to a cancelled appointment. Appointments
// that are not cancelled have no outcome and report ok=false.
func DecideAppointment(appt model.Appointment, tier model.PolicyTier) (Outcome, bool) {
	if appt.Status != model.StatusCancelled || appt.Cancellation == nil {
		return "", false
	}
	c := appt.Cancellation
	return Decide(c.HoursBefore, tier, c.RefundStatus, c.Reviewed), true
}
