/*
 * Copyright (c) 2026. AXIOM STUDIO AI Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package authview

import (
	"errors"
	"sync"
	"time"
)

// HealthStatus is the reachability state of the identity API.
type HealthStatus int

const (
	HealthUnknown      HealthStatus = iota
	HealthHealthy                   // Last probe succeeded.
	HealthDegraded                  // Probes failing, below the failure limit.
	HealthDown                      // MaxFailures consecutive probes failed.
	HealthUnconfigured              // No API URL set.
)

// String returns a human-readable label for the health status.
func (s HealthStatus) String() string {
	switch s {
	case HealthUnknown:
		return "unknown"
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthDown:
		return "down"
	case HealthUnconfigured:
		return "unconfigured"
	default:
		return "unknown"
	}
}

const maxHealthBackoff = 5 * time.Minute

// HealthMonitor probes the identity API in the background so the TUI can
// show whether submissions are likely to reach it. Probes back off
// exponentially while the API keeps failing.
type HealthMonitor struct {
	mu       sync.Mutex
	apiURL   string
	cfg      HealthConfig
	probe    func(apiURL string) error
	logger   *Logger
	status   HealthStatus
	failures int
	lastErr  error
}

// NewHealthMonitor creates a monitor for apiURL. It returns nil when the
// configured interval disables probing.
func NewHealthMonitor(apiURL string, cfg HealthConfig, logger *Logger) *HealthMonitor {
	if cfg.IntervalSeconds <= 0 {
		return nil
	}
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 3
	}
	return &HealthMonitor{
		apiURL: apiURL,
		cfg:    cfg,
		probe:  CheckServerReachable,
		logger: logger,
	}
}

// Check probes the API once and records the result.
func (hm *HealthMonitor) Check() HealthStatus {
	return hm.Record(hm.probe(hm.apiURL))
}

// Record updates the state with the result of one probe.
func (hm *HealthMonitor) Record(err error) HealthStatus {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.lastErr = err
	prev := hm.status

	switch {
	case err == nil:
		if prev == HealthDegraded || prev == HealthDown {
			hm.logger.Info("health: identity API recovered after %d failed probes", hm.failures)
		}
		hm.failures = 0
		hm.status = HealthHealthy
	case errors.Is(err, ErrAPIURLMissing):
		hm.failures = 0
		hm.status = HealthUnconfigured
	default:
		hm.failures++
		hm.status = HealthDegraded
		if hm.failures >= hm.cfg.MaxFailures {
			hm.status = HealthDown
		}
		if hm.status != prev {
			hm.logger.Warn("health: identity API %s (%d failed probes): %v", hm.status, hm.failures, err)
		}
	}
	return hm.status
}

// NextInterval returns how long to wait before the next probe.
func (hm *HealthMonitor) NextInterval() time.Duration {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	interval := time.Duration(hm.cfg.IntervalSeconds) * time.Second
	multiplier := hm.cfg.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 2
	}
	for i := 1; i < hm.failures; i++ {
		interval *= time.Duration(multiplier)
		if interval >= maxHealthBackoff {
			return maxHealthBackoff
		}
	}
	return interval
}

// Status returns the last recorded status.
func (hm *HealthMonitor) Status() HealthStatus {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.status
}

// LastError returns the error of the last failed probe, or nil.
func (hm *HealthMonitor) LastError() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.lastErr
}
