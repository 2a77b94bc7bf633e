// ABOUTME: Routes each model in the fallback chain to the provider that serves it
// ABOUTME: Optionally throttles every model call through a shared token bucket
package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// Router dispatches gemini-* models to the Gemini client and all others to OpenAI.
// Either provider may be nil; models routed to a missing provider fail so the chain
// moves on.
type Router struct {
	openAI  Completer
	gemini  Completer
	limiter *rate.Limiter
}

// NewRouter creates a router over the configured providers
func NewRouter(openAI, gemini Completer) *Router {
	return &Router{openAI: openAI, gemini: gemini}
}

// SetRateLimit caps model calls at rps per second. rps <= 0 removes the limit.
func (r *Router) SetRateLimit(rps float64) {
	if rps <= 0 {
		r.limiter = nil
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Provider names the provider that serves model
func Provider(model string) string {
	if strings.HasPrefix(strings.ToLower(model), GeminiModelPrefix) {
		return "gemini"
	}
	return "openai"
}

// Complete forwards the call to the provider serving model
func (r *Router) Complete(ctx context.Context, model, prompt string) (string, error) {
	var target Completer
	switch Provider(model) {
	case "gemini":
		target = r.gemini
	default:
		target = r.openAI
	}
	if target == nil {
		return "", fmt.Errorf("model %s: no %s provider configured", model, Provider(model))
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("model %s: rate limit wait: %w", model, err)
		}
	}
	return target.Complete(ctx, model, prompt)
}
