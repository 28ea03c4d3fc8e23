package dslog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ZapLogf adapts logger into the logf function taken by WithLogger options and NewLogger.
// Messages are logged at debug level.
func ZapLogf(logger *zap.Logger) func(ctx context.Context, format string, args ...interface{}) {
	return func(ctx context.Context, format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}
}
