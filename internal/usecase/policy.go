package usecase

import "time"

// EscalationPolicy holds the thresholds and windows that drive the lockout
// state machine.
type EscalationPolicy struct {
	MaxLoginFailures    int
	MaxRecoveryFailures int
	TempBlockDuration   time.Duration
	ResetTokenTTL       time.Duration
	FallbackOTPCode     string
}

// DefaultEscalationPolicy returns the production thresholds.
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{
		MaxLoginFailures:    5,
		MaxRecoveryFailures: 3,
		TempBlockDuration:   10 * time.Minute,
		ResetTokenTTL:       10 * time.Minute,
		FallbackOTPCode:     "123456",
	}
}

func (p EscalationPolicy) normalized() EscalationPolicy {
	def := DefaultEscalationPolicy()
	if p.MaxLoginFailures <= 0 {
		p.MaxLoginFailures = def.MaxLoginFailures
	}
	if p.MaxRecoveryFailures <= 0 {
		p.MaxRecoveryFailures = def.MaxRecoveryFailures
	}
	if p.TempBlockDuration <= 0 {
		p.TempBlockDuration = def.TempBlockDuration
	}
	if p.ResetTokenTTL <= 0 {
		p.ResetTokenTTL = def.ResetTokenTTL
	}
	if p.FallbackOTPCode == "" {
		p.FallbackOTPCode = def.FallbackOTPCode
	}
	return p
}
