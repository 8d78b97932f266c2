// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidMaxAttempts is returned when the configured retry count is not positive.
var ErrInvalidMaxAttempts = errors.New("MaxRetries must be greater than 0")

// withRetry runs an operation under the service's retry policy: up to
// Config.MaxRetries attempts, with exponential backoff starting at
// Config.RetryDelay and doubling between attempts.
// Returns the error from the last attempt if all attempts fail.
func (s *Service) withRetry(ctx context.Context, operation func() error) error {
	maxAttempts := s.config.MaxRetries
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	delay := s.config.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				s.logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		s.logger.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
		delay *= 2
	}

	return lastErr
}
