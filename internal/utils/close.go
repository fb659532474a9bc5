package utils

import (
	"io"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

// MustClose closes c and logs any error under name. A nil closer is a no-op.
func MustClose(log logger.Logger, name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("resource", name), logger.Error(err))
		return
	}
	log.Infof("✅ %s closed cleanly", name)
}
