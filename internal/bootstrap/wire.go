//go:build wireinject

package bootstrap

import (
	"context"

	"userprofile-service/internal/application"
	httpserver "userprofile-service/internal/infrastructure/http"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideConfig,
	ProvideStore,
)

// InitAPI builds the HTTP server and its cleanup.
func InitAPI(ctx context.Context) (*httpserver.Server, func(), error) {
	wire.Build(
		infraSet,
		ProvideIdempotency,
		ProvideUnitOfWork,
		ProvideUserService,
		ProvideHTTPServer,
	)
	return nil, nil, nil
}

// InitWorker builds the orphan auditor and its cleanup.
func InitWorker(ctx context.Context) (application.Worker, func(), error) {
	wire.Build(
		infraSet,
		ProvideOrphanAuditor,
	)
	return nil, nil, nil
}
