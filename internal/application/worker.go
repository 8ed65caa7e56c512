package application

import "context"

// Worker is a background loop, such as the orphan auditor.
// Implementations must run until the context is canceled.
type Worker interface {
	Start(ctx context.Context)
}
