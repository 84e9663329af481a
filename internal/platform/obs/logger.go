package obs

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the process-wide logger.
func Setup(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
