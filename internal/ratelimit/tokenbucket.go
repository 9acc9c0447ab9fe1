// Package ratelimit paces upstream shop requests so a sweep over many
// watched products does not burst the product API.
package ratelimit

import (
	"sync"
	"time"
)

// TokenJar is a token bucket refilled on a fixed interval. Callers block in
// WaitForToken until a token is available.
type TokenJar struct {
	refillInterval  time.Duration
	tokensPerRefill int
	maxTokens       int
	tokens          int
	mu              sync.Mutex
	tokensAvailable chan struct{}
	done            chan struct{}
}

// NewTokenJar builds a jar refilling at targetRPS with the given burst
// ceiling, and starts its refiller.
func NewTokenJar(targetRPS float64, burstLimit int) *TokenJar {
	if targetRPS <= 0 {
		targetRPS = 1
	}
	refillInterval := time.Duration(1000/targetRPS) * time.Millisecond
	if refillInterval < 10*time.Millisecond {
		refillInterval = 10 * time.Millisecond
	}

	tokensPerRefill := 1
	if targetRPS > 10 {
		tokensPerRefill = int(targetRPS / 5)
		refillInterval = time.Duration(float64(tokensPerRefill)*1000/targetRPS) * time.Millisecond
	}

	if burstLimit <= 0 {
		burstLimit = int(targetRPS * 2)
	}
	if burstLimit < tokensPerRefill {
		burstLimit = tokensPerRefill
	}

	jar := &TokenJar{
		refillInterval:  refillInterval,
		tokensPerRefill: tokensPerRefill,
		maxTokens:       burstLimit,
		tokens:          burstLimit,
		tokensAvailable: make(chan struct{}, 1),
		done:            make(chan struct{}),
	}

	go jar.refiller()

	return jar
}

func (tj *TokenJar) refiller() {
	ticker := time.NewTicker(tj.refillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tj.mu.Lock()
			prevTokens := tj.tokens
			tj.tokens += tj.tokensPerRefill
			if tj.tokens > tj.maxTokens {
				tj.tokens = tj.maxTokens
			}
			if prevTokens == 0 && tj.tokens > 0 {
				select {
				case tj.tokensAvailable <- struct{}{}:
				default:
				}
			}
			tj.mu.Unlock()

		case <-tj.done:
			return
		}
	}
}

func (tj *TokenJar) getToken() bool {
	tj.mu.Lock()
	defer tj.mu.Unlock()
	if tj.tokens > 0 {
		tj.tokens--
		return true
	}
	return false
}

// WaitForToken blocks until a token can be taken.
func (tj *TokenJar) WaitForToken() {
	if tj.getToken() {
		return
	}

	for {
		select {
		case <-tj.tokensAvailable:
			if tj.getToken() {
				return
			}
		case <-time.After(tj.refillInterval):
			if tj.getToken() {
				return
			}
		}
	}
}

// Stop terminates the refiller goroutine.
func (tj *TokenJar) Stop() {
	close(tj.done)
}
