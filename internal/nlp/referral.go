package nlp

import "context"

// DefaultReferral is the message ReferralFlow gives when none is set.
const DefaultReferral = "It sounds like you are going through something very painful. " +
	"I am only a program and cannot help with this. Please reach out to someone you trust, " +
	"or contact a local crisis line or emergency services right away."

// Detector flags crisis language.
type Detector interface {
	IsCrisis(ctx context.Context, text string) (bool, error)
}

// ReferralFlow answers crisis turns with a fixed referral message instead of
// a scripted reply.
type ReferralFlow struct {
	Detector Detector
	Message  string
}

func (f *ReferralFlow) IsCrisis(ctx context.Context, text string) (bool, error) {
	if f.Detector == nil {
		return false, nil
	}
	return f.Detector.IsCrisis(ctx, text)
}

func (f *ReferralFlow) Interview(ctx context.Context, text string) (string, error) {
	if f.Message == "" {
		return DefaultReferral, nil
	}
	return f.Message, nil
}
