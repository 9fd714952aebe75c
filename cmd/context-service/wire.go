//go:build wireinject
// +build wireinject

package main

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"numerologist/cmd/context-service/internal/biz"
	"numerologist/cmd/context-service/internal/conf"
	"numerologist/cmd/context-service/internal/data"
	"numerologist/cmd/context-service/internal/server"
	"numerologist/cmd/context-service/internal/service"
)

// initApp 初始化应用
func initApp(c *conf.Config, logger log.Logger) (*App, func(), error) {
	panic(wire.Build(
		wire.FieldsOf(new(*conf.Config), "Server", "Database", "Redis", "Context", "Kafka", "Auth", "RateLimit", "Resilience"),
		newContextConfig,
		newTokenModel,
		newEventPublisher,
		newConsumer,

		// Data 层
		data.ProviderSet,

		// Biz 层
		biz.ProviderSet,

		// Service 层
		service.NewContextService,
		wire.Bind(new(server.ContextAPI), new(*service.ContextService)),

		// Server 层
		server.NewHealthChecker,
		server.NewAuthHandler,
		server.NewRateLimitHandler,
		server.NewHTTPServer,

		newApp,
	))
}
