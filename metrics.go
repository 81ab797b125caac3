/*
 *    Copyright 2025 Jeff Galyan
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package numbat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the router's Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "numbat").
	Namespace string

	// Subsystem is the metrics subsystem (default: "router").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics counts router activity. A nil *Metrics records nothing.
type Metrics struct {
	dispatches      prometheus.Counter
	suppressions    prometheus.Counter
	unmatched       prometheus.Counter
	invalidPatterns prometheus.Counter
}

// NewMetrics creates and registers the router collectors.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "numbat"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "router"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		})
	}

	return &Metrics{
		dispatches:      counter("dispatches_total", "Navigations that matched at least one route"),
		suppressions:    counter("suppressed_navigations_total", "Navigations stopped because the resolved path did not change"),
		unmatched:       counter("unmatched_navigations_total", "Navigations that matched no route"),
		invalidPatterns: counter("invalid_patterns_total", "Route templates rejected at registration"),
	}
}

func (m *Metrics) dispatched() {
	if m != nil {
		m.dispatches.Inc()
	}
}

func (m *Metrics) suppressed() {
	if m != nil {
		m.suppressions.Inc()
	}
}

func (m *Metrics) unmatchedURL() {
	if m != nil {
		m.unmatched.Inc()
	}
}

func (m *Metrics) rejected() {
	if m != nil {
		m.invalidPatterns.Inc()
	}
}
