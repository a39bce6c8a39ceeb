package cli

import (
	"context"
	"fmt"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	FlowsPath string
	SessionID string
	Fresh     bool
	Debug     bool
	JSON      bool
	RedisURL  string
	StateDir  string
}

// Execute handles the run command logic.
func Execute(opts RunOptions) error {
	if opts.Fresh {
		if opts.SessionID == "" {
			return fmt.Errorf("--fresh requires --session")
		}
		logger := createLogger(opts.Debug)
		sessions, err := SetupPersistence(opts, logger)
		if err != nil {
			return err
		}
		if err := sessions.Delete(context.Background(), opts.SessionID); err != nil {
			logger.Warn("failed to reset session", "session", opts.SessionID, "error", err)
		}
	}

	return RunSession(opts)
}
