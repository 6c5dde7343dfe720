// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Badger database driver metrics
var (
	mDbOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pcyield",
		Subsystem: "badger",
		Name:      "db_open",
		Help:      "Number of open databases",
	})
	mCommit = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pcyield",
		Subsystem: "badger",
		Name:      "commit",
		Help:      "Number of committed write batches",
	})
	mGcRun = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pcyield",
		Subsystem: "badger",
		Name:      "gc_run",
		Help:      "Number of times garbage collection has run",
	})
	mGcDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pcyield",
		Subsystem: "badger",
		Name:      "gc_duration",
		Help:      "Garbage collection duration in seconds",
	})
)
