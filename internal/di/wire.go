//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/AquariesX/quick-delivey-sub001/internal/app"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		IdentitySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}
