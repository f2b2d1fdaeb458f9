//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"notify_client/internal/app"
	"notify_client/internal/config"
	"notify_client/internal/credential"
	"notify_client/internal/http"
	"notify_client/internal/http/controller"
	"notify_client/internal/logging"
	"notify_client/internal/metrics"
	"notify_client/internal/push"
	"notify_client/internal/queue/rabbitmq"
	"notify_client/internal/service/notify"
	"notify_client/internal/sse"
	"notify_client/internal/store"
)

func InitializeApp() (*app.App, error) {
	wire.Build(
		config.New,
		logging.New,
		metrics.Default,
		credential.NewProvider,
		store.NewGateway,
		app.NewTransport,
		push.NewManager,
		wire.Bind(new(notify.Connector), new(*push.Manager)),
		rabbitmq.NewToastPublisher,
		notify.NewStore,
		sse.NewHub,
		controller.NewHandler,
		http.NewRouter,
		app.NewApp,
	)
	return &app.App{}, nil
}
