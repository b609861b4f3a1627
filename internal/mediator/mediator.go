/**
 * @description
 * Tool invocation mediator: the single entry point between the agent layer
 * and the banking operations. It binds the authenticated customer identity
 * to whichever parameter name the target operation expects, discovering the
 * right name by trying the declared candidates in order and retrying on the
 * typed schema-rejection signal. Mutating operations never go through the
 * retry loop: they get exactly one attempt under a parameter name the
 * operation is known to accept.
 *
 * Every invocation is bounded by one timeout covering all alias attempts,
 * and always returns a sanitized envelope; no failure escapes as an error.
 */

package mediator

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imSurme/interchat-banking-assistant/internal/domain"
	"github.com/imSurme/interchat-banking-assistant/internal/registry"
	"github.com/imSurme/interchat-banking-assistant/internal/respond"
)

// DefaultTimeout bounds one invocation, alias retries included.
const DefaultTimeout = 4 * time.Second

// Config tunes the mediator.
type Config struct {
	// DefaultTimeout applies to operations whose descriptor sets none.
	DefaultTimeout time.Duration
	// RateLimit is the number of invocations allowed per customer per
	// window; zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Mediator resolves identities, applies limits and renders envelopes.
type Mediator struct {
	reg       *registry.Registry
	formatter *respond.Formatter
	limiter   RateLimiter
	cfg       Config
}

// New creates a mediator. limiter may be nil to disable rate limiting.
func New(reg *registry.Registry, formatter *respond.Formatter, limiter RateLimiter, cfg Config) *Mediator {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &Mediator{reg: reg, formatter: formatter, limiter: limiter, cfg: cfg}
}

// Invoke runs one operation on behalf of the authenticated customer and
// always returns an envelope.
func (m *Mediator) Invoke(ctx context.Context, operation string, args map[string]any, customer domain.CustomerContext) domain.ResponseEnvelope {
	corrID := uuid.NewString()

	desc, ok := m.reg.Lookup(operation)
	if !ok {
		log.Printf("level=warn component=mediator msg=\"unknown operation\" corr_id=%s operation=%s", corrID, operation)
		return m.formatter.FormatFailure(domain.NewNotFound("operation_not_found", "The requested operation does not exist."))
	}

	if env, limited := m.checkRateLimit(ctx, corrID, operation, customer.CustomerID); limited {
		return env
	}

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = m.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := m.attempt(ctx, corrID, desc, args, customer)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			log.Printf("level=warn component=mediator msg=\"invocation timed out\" corr_id=%s operation=%s", corrID, operation)
			err = domain.NewTimeout("The operation did not respond in time.")
		}
		log.Printf("level=info component=mediator msg=\"invocation failed\" corr_id=%s operation=%s error_kind=%s", corrID, operation, domain.KindOf(err))
		return m.formatter.FormatFailure(err)
	}
	return m.formatter.Format(raw)
}

func (m *Mediator) checkRateLimit(ctx context.Context, corrID, operation string, customerID int64) (domain.ResponseEnvelope, bool) {
	if m.limiter == nil || m.cfg.RateLimit <= 0 {
		return domain.ResponseEnvelope{}, false
	}
	count, retryAfter, err := m.limiter.ConsumeInvocation(ctx, customerID, m.cfg.RateWindow)
	if err != nil {
		// Fail open: a broken limiter must not take the assistant down.
		log.Printf("level=error component=mediator msg=\"rate limiter unavailable\" corr_id=%s error=%v", corrID, err)
		return domain.ResponseEnvelope{}, false
	}
	if count > m.cfg.RateLimit {
		log.Printf("level=warn component=mediator msg=\"rate limited\" corr_id=%s operation=%s retry_after=%d", corrID, operation, retryAfter)
		return m.formatter.FormatFailure(domain.NewRateLimited("Too many requests. Please try again shortly.")), true
	}
	return domain.ResponseEnvelope{}, false
}

// attempt binds the identity and runs the operation, alias-retrying reads on
// schema rejection.
func (m *Mediator) attempt(ctx context.Context, corrID string, desc registry.Descriptor, args map[string]any, customer domain.CustomerContext) (any, error) {
	if len(desc.IdentityCandidates) == 0 || hasAnyKey(args, desc.IdentityCandidates) {
		return m.invokeOnce(ctx, corrID, desc, args, keysOf(args))
	}

	if desc.Mutating {
		// One attempt only, under a name the operation declares; a blind
		// retry against a mutating operation could post twice.
		bound := cloneArgs(args)
		if key := acceptedCandidate(desc); key != "" {
			bound[key] = customer.CustomerID
		}
		return m.invokeOnce(ctx, corrID, desc, bound, keysOf(bound))
	}

	var lastErr error
	for _, candidate := range desc.IdentityCandidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		bound := cloneArgs(args)
		bound[candidate] = customer.CustomerID
		raw, err := m.invokeOnce(ctx, corrID, desc, bound, keysOf(bound))
		if err == nil {
			return raw, nil
		}
		if !domain.IsSchemaRejection(err) {
			return nil, err
		}
		log.Printf("level=info component=mediator msg=\"identity alias rejected\" corr_id=%s operation=%s alias=%s", corrID, desc.Name, candidate)
		lastErr = err
	}

	// Last resort: one bare attempt with no identity injected.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	raw, err := m.invokeOnce(ctx, corrID, desc, cloneArgs(args), keysOf(args))
	if err == nil {
		return raw, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, err
}

func (m *Mediator) invokeOnce(ctx context.Context, corrID string, desc registry.Descriptor, args map[string]any, attemptedKeys string) (any, error) {
	log.Printf("level=info component=mediator msg=\"invoking operation\" corr_id=%s operation=%s keys=%s", corrID, desc.Name, attemptedKeys)
	return desc.Invoke(ctx, args)
}

func acceptedCandidate(desc registry.Descriptor) string {
	for _, candidate := range desc.IdentityCandidates {
		for _, p := range desc.Params {
			if p.Name == candidate {
				return candidate
			}
		}
	}
	return ""
}

func hasAnyKey(args map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := args[k]; ok {
			return true
		}
	}
	return false
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	return out
}

// keysOf renders the argument key set for logging. Values never appear.
func keysOf(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
