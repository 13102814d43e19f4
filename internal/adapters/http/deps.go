package http

import (
	"github.com/nats-io/nats.go"

	"github.com/ibonlg/routeshape/internal/adapters/postgres"
	"github.com/ibonlg/routeshape/internal/adapters/valkey"
	"github.com/ibonlg/routeshape/internal/core/ports"
	"github.com/ibonlg/routeshape/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Shapes      *usecases.ShapeService
	Connections ports.ConnectionRepository
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
