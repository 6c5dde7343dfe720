// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pcyield",
	Subsystem: "engine",
	Name:      "operations",
	Help:      "Number of operations by name and status",
}, []string{"op", "status"})
