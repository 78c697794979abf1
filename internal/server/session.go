package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/devtoolshub/devtools-hub/internal/telemetry"
	"github.com/sirupsen/logrus"
)

const (
	sessionPrefix = "session-"
	maxSessions   = 4096
)

// TimeoutSessionManager issues Streamable HTTP session IDs that expire after a period
// without requests
type TimeoutSessionManager struct {
	timeout  time.Duration
	logger   *logrus.Logger
	sessions *cache.Cache
}

// NewTimeoutSessionManager creates a manager expiring idle sessions after timeout
func NewTimeoutSessionManager(timeout time.Duration, logger *logrus.Logger) *TimeoutSessionManager {
	return &TimeoutSessionManager{
		timeout:  timeout,
		logger:   logger,
		sessions: cache.NewBoundedCache(timeout, maxSessions),
	}
}

func (t *TimeoutSessionManager) Generate() string {
	id := sessionPrefix + telemetry.GenerateSessionID()
	t.sessions.Set(id, true)
	return id
}

// Validate refreshes a live session. Unknown and expired IDs are reported as
// terminated so the client starts a new session.
func (t *TimeoutSessionManager) Validate(sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}
	if !strings.HasPrefix(sessionID, sessionPrefix) {
		return false, fmt.Errorf("invalid session ID format")
	}

	live, ok := t.sessions.Get(sessionID)
	if !ok || live != true {
		t.logger.WithField("session", sessionID).Debug("Session expired or unknown")
		return true, nil
	}
	t.sessions.Set(sessionID, true)
	return false, nil
}

func (t *TimeoutSessionManager) Terminate(sessionID string) (bool, error) {
	if !strings.HasPrefix(sessionID, sessionPrefix) {
		return false, fmt.Errorf("invalid session ID format")
	}
	t.sessions.Set(sessionID, false)
	t.logger.Debugf("Session terminated: %s", sessionID)
	return false, nil
}
