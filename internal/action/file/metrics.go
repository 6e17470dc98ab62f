// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package file

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "windlass_file_operation_duration_seconds",
			Help:    "Duration of file action operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	bytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windlass_file_bytes_read_total",
		Help: "Total bytes read by the file action",
	})

	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windlass_file_bytes_written_total",
		Help: "Total bytes written by the file action",
	})
)

func observeOperation(operation, status string, d time.Duration, read, written int64) {
	operationDuration.WithLabelValues(operation, status).Observe(d.Seconds())
	if read > 0 {
		bytesRead.Add(float64(read))
	}
	if written > 0 {
		bytesWritten.Add(float64(written))
	}
}
