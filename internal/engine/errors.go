package engine

import (
	"errors"
	"fmt"

	"github.com/seanblong/interviewrag/internal/ai"
)

// ErrNotConfigured means the model provider has no credentials. Callers
// should not retry until configuration changes.
var ErrNotConfigured = errors.New("model provider not configured")

// classify tags provider credential failures with ErrNotConfigured and
// wraps everything else with the operation name.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ai.ErrMissingAPIKey) {
		return fmt.Errorf("%s: %w: %w", op, ErrNotConfigured, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
