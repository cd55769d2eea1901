// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the coordinator's Prometheus collectors.
type Metrics struct {
	TasksSubmitted  *prometheus.CounterVec
	TasksFinished   *prometheus.CounterVec
	Redeliveries    prometheus.Counter
	EventsPublished *prometheus.CounterVec
	ActiveLeases    prometheus.Gauge
	Subscribers     prometheus.Gauge
}

// NewMetrics creates the coordinator collectors and registers them on the
// given registerer. Pass prometheus.DefaultRegisterer outside tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "tasks_submitted_total",
			Help:      "Tasks accepted by the coordinator.",
		}, []string{"streaming"}),
		TasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "tasks_finished_total",
			Help:      "Tasks reaching a terminal state, by state.",
		}, []string{"state"}),
		Redeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "dispatch_redeliveries_total",
			Help:      "Dispatch notices re-enqueued after lease expiry.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "stream_events_published_total",
			Help:      "Events appended to task streams, by type.",
		}, []string{"type"}),
		ActiveLeases: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "a2a",
			Name:      "active_leases",
			Help:      "Leases currently held by workers.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "a2a",
			Name:      "stream_subscribers",
			Help:      "Open stream subscriptions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.TasksSubmitted,
			m.TasksFinished,
			m.Redeliveries,
			m.EventsPublished,
			m.ActiveLeases,
			m.Subscribers,
		)
	}
	return m
}
