package audiocore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// SessionHealthMonitor watches mastering sessions for processing stalls: a
// session whose worker pool has not finished a chunk in stallTimeout is
// assumed hung (stuck codec, deadlocked stage, runaway DSP loop) and is
// reported so the caller can cancel and requeue it.
type SessionHealthMonitor struct {
	stallTimeout  time.Duration
	checkInterval time.Duration
	onStallAction string // "cancel", "alert"

	sessions map[string]*sessionHealth
	mu       sync.RWMutex
	logger   *slog.Logger
}

// sessionHealth tracks liveness for a single mastering session.
type sessionHealth struct {
	sessionID      string
	lastChunkAt    time.Time
	lastProgress   float64 // 0..1 fraction of track processed
	isHealthy      bool
}

// HealthMonitorConfig holds configuration for session health monitoring.
type HealthMonitorConfig struct {
	StallTimeout  time.Duration
	CheckInterval time.Duration
	OnStallAction string
}

// NewSessionHealthMonitor creates a new health monitor.
func NewSessionHealthMonitor(config HealthMonitorConfig) *SessionHealthMonitor {
	log := logger.ForModule("audiocore")
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "health_monitor")

	return &SessionHealthMonitor{
		stallTimeout:  config.StallTimeout,
		checkInterval: config.CheckInterval,
		onStallAction: config.OnStallAction,
		sessions:      make(map[string]*sessionHealth),
		logger:        log,
	}
}

// MonitorSession starts tracking liveness for sessionID.
func (h *SessionHealthMonitor) MonitorSession(sessionID string) {
	if sessionID == "" {
		return
	}

	h.mu.Lock()
	if _, exists := h.sessions[sessionID]; exists {
		h.mu.Unlock()
		return
	}

	health := &sessionHealth{
		sessionID:   sessionID,
		lastChunkAt: time.Now(),
		isHealthy:   true,
	}
	h.sessions[sessionID] = health
	h.mu.Unlock()

	h.logger.Info("started monitoring session", "session_id", sessionID)
}

// StopMonitoring stops tracking a session, e.g. once it completes or is released.
func (h *SessionHealthMonitor) StopMonitoring(sessionID string) {
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	h.logger.Info("stopped monitoring session", "session_id", sessionID)
}

// RecordProgress is called by the mastering engine each time a chunk
// finishes processing for sessionID.
func (h *SessionHealthMonitor) RecordProgress(sessionID string, progress float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	health, exists := h.sessions[sessionID]
	if !exists {
		return
	}

	health.lastChunkAt = time.Now()
	health.lastProgress = progress
	health.isHealthy = true
}

// handleStalledSession handles a stalled session based on configuration.
func (h *SessionHealthMonitor) handleStalledSession(sessionID string) {
	h.logger.Warn("session stalled - no chunk progress within stall timeout",
		"session_id", sessionID,
		"action", h.onStallAction)

	switch h.onStallAction {
	case "cancel":
		h.logger.Info("marking session for cancellation", "session_id", sessionID)

		if metrics := GetMetrics(); metrics != nil {
			metrics.RecordProcessingError("health_monitor", sessionID, "session_stall_cancelled")
		}

		// Actual cancellation is injected by the session owner, typically
		// via the mastering engine's context.CancelFunc for this session.

	case "alert":
		h.logger.Error("session health alert - prolonged stall detected",
			"session_id", sessionID,
			"stall_timeout", h.stallTimeout)

		if metrics := GetMetrics(); metrics != nil {
			metrics.RecordProcessingError("health_monitor", sessionID, "session_stall_alert")
		}

	default:
		// No action configured
	}
}

// MarkStalled immediately marks sessionID unhealthy and runs the
// configured stall action, without waiting for the next periodic check.
// Used by a caller that detects a processing timeout directly (a single
// chunk build exceeding its deadline) rather than via inactivity polling.
// A no-op if the session isn't tracked, or was already marked unhealthy by
// a prior call or by checkAllSessions, so the stall action fires once per
// stall instead of once per reporter.
func (h *SessionHealthMonitor) MarkStalled(sessionID string) {
	h.mu.Lock()
	health, exists := h.sessions[sessionID]
	if !exists || !health.isHealthy {
		h.mu.Unlock()
		return
	}
	health.isHealthy = false
	h.mu.Unlock()

	h.handleStalledSession(sessionID)
}

// GetSessionHealth returns health status for a session.
func (h *SessionHealthMonitor) GetSessionHealth(sessionID string) (bool, *sessionHealth) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.sessions[sessionID]
	if !exists {
		return false, nil
	}

	return health.isHealthy, health
}

// GetAllHealth returns health status for all monitored sessions.
func (h *SessionHealthMonitor) GetAllHealth() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]bool)
	for id, health := range h.sessions {
		result[id] = health.isHealthy
	}

	return result
}

// Start begins the health monitoring loop.
func (h *SessionHealthMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.checkAllSessions()
		case <-ctx.Done():
			return
		}
	}
}

// checkAllSessions checks the health of all monitored sessions.
func (h *SessionHealthMonitor) checkAllSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, health := range h.sessions {
		stallDuration := time.Since(health.lastChunkAt)
		if health.isHealthy && stallDuration > h.stallTimeout {
			health.isHealthy = false
			h.handleStalledSession(sessionID)
		}
	}
}
