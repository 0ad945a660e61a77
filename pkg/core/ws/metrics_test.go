package ws

import "testing"

func TestMetricsCollector_Percentiles(t *testing.T) {
	t.Parallel()

	m := NewMetricsCollector()
	// 1..100 in reverse order; snapshot must sort a copy.
	for i := 100; i >= 1; i-- {
		m.RecordSTTTTFT(float64(i))
	}

	stats := m.Metrics().STTTimeToFirstToken
	if stats.Count != 100 {
		t.Fatalf("count=%d, want 100", stats.Count)
	}
	// Lower-index convention: sorted[min(int(p*n), n-1)].
	if stats.P50 != 51 {
		t.Fatalf("p50=%v, want 51", stats.P50)
	}
	if stats.P95 != 96 {
		t.Fatalf("p95=%v, want 96", stats.P95)
	}
	if stats.P99 != 100 {
		t.Fatalf("p99=%v, want 100", stats.P99)
	}
	if stats.Min != 1 || stats.Max != 100 {
		t.Fatalf("min=%v max=%v, want 1 100", stats.Min, stats.Max)
	}
	if stats.Mean != 50.5 {
		t.Fatalf("mean=%v, want 50.5", stats.Mean)
	}
}

func TestMetricsCollector_SinglePercentileClamped(t *testing.T) {
	t.Parallel()

	m := NewMetricsCollector()
	m.RecordTTSTTFB(42)

	stats := m.Metrics().TTSTimeToFirstByte
	if stats.P99 != 42 || stats.P50 != 42 {
		t.Fatalf("p50=%v p99=%v, want 42 for both", stats.P50, stats.P99)
	}
}

func TestMetricsCollector_ReservoirCapacity(t *testing.T) {
	t.Parallel()

	m := NewMetricsCollector()
	for i := 0; i < 5000; i++ {
		m.RecordE2ELatency(float64(i))
	}

	stats := m.Metrics().E2ELatency
	if stats.Count != defaultMaxSamples {
		t.Fatalf("count=%d, want capped at %d", stats.Count, defaultMaxSamples)
	}
}

func TestMetricsCollector_CountersAndReset(t *testing.T) {
	t.Parallel()

	m := NewMetricsCollector()
	m.RecordMessageSent()
	m.RecordMessageSent()
	m.RecordMessageReceived()
	m.RecordAudioSent(320)
	m.RecordAudioReceived(640)
	m.RecordReconnect()
	m.RecordWSConnect(12.5)
	m.RecordSTTTTFT(100)

	got := m.Metrics()
	if got.MessagesSent != 2 || got.MessagesReceived != 1 {
		t.Fatalf("messages sent=%d received=%d, want 2 and 1", got.MessagesSent, got.MessagesReceived)
	}
	if got.AudioBytesSent != 320 || got.AudioBytesReceived != 640 {
		t.Fatalf("audio bytes sent=%d received=%d, want 320 and 640", got.AudioBytesSent, got.AudioBytesReceived)
	}
	if got.ReconnectCount != 1 || got.WSConnectMS != 12.5 {
		t.Fatalf("reconnects=%d connect_ms=%v, want 1 and 12.5", got.ReconnectCount, got.WSConnectMS)
	}

	m.Reset()
	got = m.Metrics()
	if got.MessagesSent != 0 || got.AudioBytesReceived != 0 || got.STTTimeToFirstToken.Count != 0 || got.WSConnectMS != 0 {
		t.Fatalf("metrics not cleared after Reset: %+v", got)
	}
}
