// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_command_duration_seconds",
		Help:    "Time to execute a tracker facade command",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"command", "status"})

	providerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_provider_failures_total",
		Help: "Provider fetch failures absorbed by the aggregator",
	}, []string{"source"})

	aggregatedAchievements = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_aggregated_achievements",
		Help:    "Achievements per aggregation after dedup",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})

	guideGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_guide_generations_total",
		Help: "Guide generation attempts by outcome",
	}, []string{"status"})
)
