package museum

import (
	"context"
	"time"

	"github.com/northhall/museum/internal/store"
)

// DefaultOperationTimeout bounds a single mutator or view call when the
// caller does not configure one.
const DefaultOperationTimeout = 5 * time.Second

// Service is the engine the boundary layer calls. It is stateless;
// every call is independent given the current backend state.
type Service struct {
	store   store.Store
	timeout time.Duration
}

// NewService wraps a store. opTimeout bounds each backend operation;
// zero selects DefaultOperationTimeout.
func NewService(st store.Store, opTimeout time.Duration) *Service {
	if opTimeout <= 0 {
		opTimeout = DefaultOperationTimeout
	}
	return &Service{store: st, timeout: opTimeout}
}

// opContext bounds one operation. The deadline converts a hung backend
// into KindUnavailable instead of an indefinite block.
func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
