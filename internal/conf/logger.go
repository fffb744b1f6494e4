package conf

import (
	"log/slog"

	"github.com/mangocats/wkmp/internal/logging"
)

// GetLogger returns a structured logger scoped to the configuration
// module.
func GetLogger() *slog.Logger {
	return logging.ForService("conf")
}
