package ws

import (
	"math/rand"
	"sort"
	"sync"
)

const defaultMaxSamples = 1000

// PercentileStats summarizes a latency series.
type PercentileStats struct {
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Last  float64 `json:"last"`
	Count int     `json:"count"`
}

// SessionMetrics is a point-in-time snapshot of session performance.
type SessionMetrics struct {
	STTTimeToFirstToken PercentileStats `json:"stt_ttft"`
	TTSTimeToFirstByte  PercentileStats `json:"tts_ttfb"`
	E2ELatency          PercentileStats `json:"e2e_latency"`
	WSConnectMS         float64         `json:"ws_connect_ms"`
	ReconnectCount      int             `json:"reconnect_count"`
	MessagesSent        int64           `json:"messages_sent"`
	MessagesReceived    int64           `json:"messages_received"`
	AudioBytesSent      int64           `json:"audio_bytes_sent"`
	AudioBytesReceived  int64           `json:"audio_bytes_received"`
}

// MetricsCollector samples latency series with bounded memory and counts
// traffic. Series use reservoir sampling once the cap is reached, so
// long-running sessions keep a uniform sample of the full history.
type MetricsCollector struct {
	mu         sync.Mutex
	maxSamples int

	sttTTFT    []float64
	ttsTTFB    []float64
	e2eLatency []float64

	wsConnectMS        float64
	reconnectCount     int
	messagesSent       int64
	messagesReceived   int64
	audioBytesSent     int64
	audioBytesReceived int64
}

// NewMetricsCollector creates a collector with the default sample cap.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{maxSamples: defaultMaxSamples}
}

// RecordSTTTTFT records a speech-to-text time-to-first-token sample in ms.
func (m *MetricsCollector) RecordSTTTTFT(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sttTTFT = m.addSample(m.sttTTFT, ms)
}

// RecordTTSTTFB records a text-to-speech time-to-first-byte sample in ms.
func (m *MetricsCollector) RecordTTSTTFB(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttsTTFB = m.addSample(m.ttsTTFB, ms)
}

// RecordE2ELatency records an end-to-end latency sample in ms.
func (m *MetricsCollector) RecordE2ELatency(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.e2eLatency = m.addSample(m.e2eLatency, ms)
}

// RecordWSConnect records the most recent websocket connect duration in ms.
func (m *MetricsCollector) RecordWSConnect(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsConnectMS = ms
}

// RecordReconnect counts a successful reconnection.
func (m *MetricsCollector) RecordReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectCount++
}

// RecordMessageSent counts an outbound control frame.
func (m *MetricsCollector) RecordMessageSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent++
}

// RecordMessageReceived counts an inbound frame.
func (m *MetricsCollector) RecordMessageReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesReceived++
}

// RecordAudioSent counts outbound audio bytes.
func (m *MetricsCollector) RecordAudioSent(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioBytesSent += int64(n)
}

// RecordAudioReceived counts inbound audio bytes.
func (m *MetricsCollector) RecordAudioReceived(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioBytesReceived += int64(n)
}

func (m *MetricsCollector) addSample(samples []float64, v float64) []float64 {
	if len(samples) < m.maxSamples {
		return append(samples, v)
	}
	samples[rand.Intn(len(samples))] = v
	return samples
}

// Metrics returns a snapshot. Series are copied before sorting so recording
// order is preserved internally.
func (m *MetricsCollector) Metrics() SessionMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionMetrics{
		STTTimeToFirstToken: percentiles(m.sttTTFT),
		TTSTimeToFirstByte:  percentiles(m.ttsTTFB),
		E2ELatency:          percentiles(m.e2eLatency),
		WSConnectMS:         m.wsConnectMS,
		ReconnectCount:      m.reconnectCount,
		MessagesSent:        m.messagesSent,
		MessagesReceived:    m.messagesReceived,
		AudioBytesSent:      m.audioBytesSent,
		AudioBytesReceived:  m.audioBytesReceived,
	}
}

// Reset clears all samples and counters.
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sttTTFT = nil
	m.ttsTTFB = nil
	m.e2eLatency = nil
	m.wsConnectMS = 0
	m.reconnectCount = 0
	m.messagesSent = 0
	m.messagesReceived = 0
	m.audioBytesSent = 0
	m.audioBytesReceived = 0
}

func percentiles(samples []float64) PercentileStats {
	if len(samples) == 0 {
		return PercentileStats{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	n := len(sorted)

	pick := func(p float64) float64 {
		idx := int(p * float64(n))
		if idx > n-1 {
			idx = n - 1
		}
		return sorted[idx]
	}

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return PercentileStats{
		P50:   pick(0.50),
		P95:   pick(0.95),
		P99:   pick(0.99),
		Min:   sorted[0],
		Max:   sorted[n-1],
		Mean:  sum / float64(n),
		Last:  sorted[n-1],
		Count: n,
	}
}
