package logger

import "time"

// Standard field keys.
const (
	FieldComponent  = "component"
	FieldModelID    = "model_id"
	FieldNode       = "node"
	FieldAlgorithm  = "algorithm"
	FieldCPUBudget  = "cpu_budget"
	FieldRAMBudget  = "ram_budget"
	FieldPeriod     = "period_ms"
	FieldOutputTime = "output_time_ns"
	FieldError      = "error"
	FieldDuration   = "duration_us"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("done", logger.Fields("node", "Map(3)", "elements", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// DurationFields creates fields for a timed operation.
func DurationFields(d time.Duration, kvs ...interface{}) map[string]interface{} {
	m := Fields(kvs...)
	m[FieldDuration] = d.Microseconds()
	return m
}
