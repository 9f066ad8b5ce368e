// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle. app.Run calls each in
// order, from configuration loading through DB setup, one-time startup
// work and HTTP handler construction, to graceful shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "vicarapi",     // used only for logging/diagnostics
	LoadConfig:     LoadConfig,     // load core + app config
	ValidateConfig: ValidateConfig, // validate MongoDB URI, JWT secret and limits
	ConnectDB:      ConnectDB,      // connect to MongoDB, storage and mailer
	EnsureSchema:   EnsureSchema,   // validators, indexes, admin seed
	Startup:        Startup,        // timeouts and background tasks
	BuildHandler:   BuildHandler,   // build the HTTP router + middleware stack
	Shutdown:       Shutdown,       // stop tasks and disconnect MongoDB
}
