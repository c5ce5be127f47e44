package repository

// NopMetrics discards all recordings. Default for tests and for wiring
// without a metrics backend.
type NopMetrics struct{}

func (NopMetrics) RecordTick(string)               {}
func (NopMetrics) RecordAssetGenerated(string)     {}
func (NopMetrics) RecordGenerationCollision()      {}
func (NopMetrics) RecordLastPrice(string, float64) {}
func (NopMetrics) RecordTrade(string, string)      {}
func (NopMetrics) RecordError(string)              {}
func (NopMetrics) RecordLatency(string, float64)   {}
