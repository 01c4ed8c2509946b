package dataset

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the command logger: "json" (default) is zap's production config,
// "console" the development one.
func NewLogger(format string) (*zap.Logger, error) {
	switch format {
	case "", "json":
		return zap.NewProduction()
	case "console":
		return zap.NewDevelopment()
	default:
		return nil, fmt.Errorf("unknown log format %q (want json or console)", format)
	}
}
