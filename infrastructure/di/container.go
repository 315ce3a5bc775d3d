package di

import (
	"go.uber.org/zap"

	"devrank/application/commands/bus"
	"devrank/application/ports"
	querybus "devrank/application/queries/bus"
	"devrank/application/services"
	"devrank/infrastructure/config"
	"devrank/interfaces/http/rest"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Session     ports.GraphSession
	Views       *services.ViewService
	Names       *services.NamesService
	Connections ports.ConnectionStore
	Publisher   ports.EventPublisher
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Router      *rest.Router
	Metrics     *Metrics
}
