package repository

import (
	"time"

	"github.com/okian/rankbench/pkg/metrics"
)

// Operation labels for store latency metrics.
const (
	opDrop          = "drop"
	opInsert        = "insert_many"
	opCreateIndexes = "create_indexes"
	opFind          = "find_one"
	opCount         = "count_documents"
	opExplain       = "explain"
)

// observe records the latency of a store operation started at start.
func observe(op string, start time.Time) {
	metrics.RecordStoreOperationLatency(op, float64(time.Since(start).Microseconds())/1000)
}
