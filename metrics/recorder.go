/*
Copyright (c) the execunit-ipc authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics backs channel.Recorder and channel/listener.Recorder with
// prometheus counters and gauges, exported the way
// ptp/sptp/stats.PrometheusExporter exports sptp's own counters: a private
// *prometheus.Registry and a promhttp handler, rather than the default
// global registry, so a process embedding this package never collides with
// another package's metric names.
package metrics

import (
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements both channel.Recorder and channel/listener.Recorder.
// The zero value is not usable; construct with NewRecorder.
type Recorder struct {
	registry *prometheus.Registry

	framesSent       prometheus.Counter
	bytesSent        prometheus.Counter
	framesReceived   prometheus.Counter
	bytesReceived    prometheus.Counter
	framesDropped    *prometheus.CounterVec
	pumpExits        prometheus.Counter
	pumpExitsClean   prometheus.Counter
	correlationHits  prometheus.Counter
	correlationMiss  *prometheus.CounterVec
	correlationWait  prometheus.Counter
	callbacksSeen    prometheus.Counter
	rtt              *RTTTracker
	rttSummary       prometheus.Gauge
	rttStddevSummary prometheus.Gauge
}

// NewRecorder constructs a Recorder and registers all of its collectors
// with a fresh private registry, which Registry exposes for Exporter to serve.
func NewRecorder(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_sent_total", Help: "Frames written to the transport.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_sent_total", Help: "Frame body bytes written to the transport.",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_received_total", Help: "Frames read from the transport.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_received_total", Help: "Frame body bytes read from the transport.",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_dropped_total", Help: "Frames the pump could not parse or dispatch, by reason.",
		}, []string{"reason"}),
		pumpExits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pump_exits_total", Help: "Times the receive pump goroutine has exited.",
		}),
		pumpExitsClean: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pump_exits_clean_total", Help: "Pump exits caused by a clean EOF rather than an I/O error.",
		}),
		correlationHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "correlation_hits_total", Help: "Responses matched to a pending request by sequence number.",
		}),
		correlationMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "correlation_misses_total", Help: "Inbound responses that could not be correlated, by reason.",
		}, []string{"reason"}),
		correlationWait: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "correlation_timeouts_total", Help: "WaitForResponse calls that timed out.",
		}),
		callbacksSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "callbacks_dispatched_total", Help: "Unsolicited callback TLVs dispatched to the user sink.",
		}),
		rtt: NewRTTTracker(),
		rttSummary: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "request_rtt_mean_seconds", Help: "Running mean of wait_for_response round-trip time.",
		}),
		rttStddevSummary: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "request_rtt_stddev_seconds", Help: "Running standard deviation of wait_for_response round-trip time.",
		}),
	}

	reg.MustRegister(
		r.framesSent, r.bytesSent, r.framesReceived, r.bytesReceived,
		r.framesDropped, r.pumpExits, r.pumpExitsClean,
		r.correlationHits, r.correlationMiss, r.correlationWait,
		r.callbacksSeen, r.rttSummary, r.rttStddevSummary,
	)
	return r
}

// Registry returns the private registry Exporter serves.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// FrameSent implements channel.Recorder.
func (r *Recorder) FrameSent(bytes int) {
	r.framesSent.Inc()
	r.bytesSent.Add(float64(bytes))
}

// FrameReceived implements channel.Recorder.
func (r *Recorder) FrameReceived(bytes int) {
	r.framesReceived.Inc()
	r.bytesReceived.Add(float64(bytes))
}

// FrameDropped implements channel.Recorder.
func (r *Recorder) FrameDropped(reason string) {
	r.framesDropped.WithLabelValues(reason).Inc()
}

// PumpExited implements channel.Recorder.
func (r *Recorder) PumpExited(err error) {
	r.pumpExits.Inc()
	if err == nil || errors.Is(err, io.EOF) {
		r.pumpExitsClean.Inc()
	}
}

// CorrelationHit implements channel/listener.Recorder.
func (r *Recorder) CorrelationHit() { r.correlationHits.Inc() }

// CorrelationMiss implements channel/listener.Recorder.
func (r *Recorder) CorrelationMiss(reason string) { r.correlationMiss.WithLabelValues(reason).Inc() }

// CorrelationTimeout implements channel/listener.Recorder.
func (r *Recorder) CorrelationTimeout() { r.correlationWait.Inc() }

// CallbackDispatched implements channel/listener.Recorder.
func (r *Recorder) CallbackDispatched() { r.callbacksSeen.Inc() }

// ObserveRTT feeds one wait_for_response round-trip duration into the
// welford-based running mean/stddev and republishes both as gauges. Callers
// (cmd/execunit-probe) measure the duration around WaitForResponse
// themselves; the correlation layer has no notion of wall-clock time.
func (r *Recorder) ObserveRTT(d time.Duration) {
	r.rtt.Observe(d)
	r.rttSummary.Set(r.rtt.Mean().Seconds())
	r.rttStddevSummary.Set(r.rtt.Stddev().Seconds())
}
