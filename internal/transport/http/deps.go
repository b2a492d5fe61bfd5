package http

import (
	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/application/correlation"
	"github.com/tiffin-tracker/internal/application/history"
	"github.com/tiffin-tracker/internal/application/settings"
	"github.com/tiffin-tracker/internal/transport/http/middleware"
)

// Deps holds everything the router needs. Verifier may be nil, in which
// case authenticated routes reject every request.
type Deps struct {
	Correlation correlation.Service
	History     history.Service
	Settings    settings.Service
	Verifier    middleware.TokenVerifier
	Log         logrus.FieldLogger
}
