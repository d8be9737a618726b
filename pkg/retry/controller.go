package retry

import (
	"fmt"
	"time"

	"igfollowers/pkg/models"
)

// Action is what the collection loop should do next
type Action int

const (
	// ActionContinue advances to the next cursor after Wait
	ActionContinue Action = iota
	// ActionRetry re-issues the same cursor after Wait
	ActionRetry
	// ActionAbort ends the run
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionRetry:
		return "retry"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Decision is the controller's verdict for one outcome
type Decision struct {
	Action Action
	Wait   time.Duration
	// ErrorCount is the consecutive error count to carry into the next decision
	ErrorCount int
	// Reason is set on ActionAbort
	Reason string
	// CredentialInvalid is set when the abort was caused by an auth failure
	CredentialInvalid bool
}

// Policy configures the controller
type Policy struct {
	// BaseDelay is the pause between successful pages
	BaseDelay time.Duration
	// Jitter spreads BaseDelay symmetrically, as a fraction in [0, 1)
	Jitter float64

	RateLimitBase    time.Duration
	RateLimitStep    time.Duration
	RateLimitMax     time.Duration
	RateLimitCeiling int

	TransientMin time.Duration
	TransientMax time.Duration
	// ErrorCeiling is the consecutive transient count that aborts the run
	ErrorCeiling int
}

// DefaultPolicy returns the production policy
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:        2 * time.Second,
		Jitter:           0.25,
		RateLimitBase:    20 * time.Second,
		RateLimitStep:    15 * time.Second,
		RateLimitMax:     5 * time.Minute,
		RateLimitCeiling: 8,
		TransientMin:     5 * time.Second,
		TransientMax:     10 * time.Second,
		ErrorCeiling:     3,
	}
}

// Validate reports policies that could loop forever or never wait
func (p Policy) Validate() error {
	switch {
	case p.Jitter < 0 || p.Jitter >= 1:
		return fmt.Errorf("jitter %.2f outside [0, 1)", p.Jitter)
	case p.ErrorCeiling <= 0:
		return fmt.Errorf("error ceiling must be positive, got %d", p.ErrorCeiling)
	case p.RateLimitCeiling <= 0:
		return fmt.Errorf("rate limit ceiling must be positive, got %d", p.RateLimitCeiling)
	case p.TransientMin > p.TransientMax:
		return fmt.Errorf("transient window [%v, %v] is inverted", p.TransientMin, p.TransientMax)
	case p.BaseDelay < 0:
		return fmt.Errorf("base delay cannot be negative")
	}
	return nil
}

// Controller maps fetch outcomes to wait/retry/abort decisions. It holds no
// per-run state; the caller threads ErrorCount through successive calls.
type Controller struct {
	policy    Policy
	pace      *LinearBackoff
	rateLimit *LinearBackoff
	transient *UniformBackoff
}

// NewController builds a controller. rnd may be nil.
func NewController(p Policy, rnd RandFunc) *Controller {
	return &Controller{
		policy: p,
		pace: &LinearBackoff{
			BaseDelay:    p.BaseDelay,
			JitterFactor: p.Jitter,
			Rand:         rnd,
		},
		rateLimit: &LinearBackoff{
			BaseDelay: p.RateLimitBase,
			Increment: p.RateLimitStep,
			MaxDelay:  p.RateLimitMax,
		},
		transient: &UniformBackoff{
			Min:  p.TransientMin,
			Max:  p.TransientMax,
			Rand: rnd,
		},
	}
}

// Policy returns the policy the controller was built with
func (c *Controller) Policy() Policy {
	return c.policy
}

// Decide returns what to do after outcome, given the consecutive error count so far
func (c *Controller) Decide(outcome models.Outcome, consecutiveErrors int) Decision {
	if consecutiveErrors < 0 {
		consecutiveErrors = 0
	}
	next := consecutiveErrors + 1

	switch outcome {
	case models.OutcomeOK:
		return Decision{
			Action: ActionContinue,
			Wait:   c.pace.NextDelay(1),
		}

	case models.OutcomeRateLimited:
		if next > c.policy.RateLimitCeiling {
			return Decision{
				Action:     ActionAbort,
				ErrorCount: next,
				Reason:     fmt.Sprintf("rate limited %d times in a row", next),
			}
		}
		return Decision{
			Action:     ActionRetry,
			Wait:       c.rateLimit.NextDelay(next),
			ErrorCount: next,
		}

	case models.OutcomeTransient:
		if next >= c.policy.ErrorCeiling {
			return Decision{
				Action:     ActionAbort,
				ErrorCount: next,
				Reason:     fmt.Sprintf("giving up after %d consecutive transient errors", next),
			}
		}
		return Decision{
			Action:     ActionRetry,
			Wait:       c.transient.NextDelay(next),
			ErrorCount: next,
		}

	case models.OutcomeAuthFailed:
		return Decision{
			Action:            ActionAbort,
			ErrorCount:        next,
			Reason:            "authentication failed: the credential is invalid or expired and must be replaced",
			CredentialInvalid: true,
		}

	default:
		return Decision{
			Action:     ActionAbort,
			ErrorCount: next,
			Reason:     "fatal error: the server will not accept this request",
		}
	}
}
