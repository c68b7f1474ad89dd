// Package metrics exposes prometheus collectors for the frame pipeline and the
// login flow.
package metrics

import (
	"PoseLogin/pkg/stream"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poselogin"

var (
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of pipeline passes by outcome",
		},
		[]string{"outcome"}, // frame, skip, terminate
	)

	frameDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent acquiring, classifying and encoding one frame",
			Buckets:   []float64{.005, .01, .02, .033, .05, .1, .25, .5, 1},
		},
	)

	poseObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pose_observations_total",
			Help:      "Total number of classified frames by pose label",
		},
		[]string{"pose"},
	)

	stepsAdvancedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_steps_advanced_total",
			Help:      "Total number of login sequence steps completed",
		},
	)

	loginsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_completed_total",
			Help:      "Total number of finished login sequences",
		},
	)

	sessionResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Total number of session resets",
		},
	)

	streamClientsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients_active",
			Help:      "Number of currently connected stream clients",
		},
	)

	allMetrics = []prometheus.Collector{
		framesTotal,
		frameDuration,
		poseObservationsTotal,
		stepsAdvancedTotal,
		loginsCompletedTotal,
		sessionResetsTotal,
		streamClientsActive,
	}
)

// NewRegistry returns a registry holding every collector of this package plus
// the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, collector := range allMetrics {
		reg.MustRegister(collector)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RecordStep accounts one pipeline pass. It satisfies stream.ObserverFunc.
func RecordStep(step stream.Step, elapsed time.Duration) {
	framesTotal.WithLabelValues(step.Outcome.String()).Inc()
	if step.Outcome == stream.OutcomeTerminate {
		return
	}

	frameDuration.Observe(elapsed.Seconds())
	poseObservationsTotal.WithLabelValues(string(step.Pose)).Inc()
	if step.Transition.Advanced {
		stepsAdvancedTotal.Inc()
		if step.Transition.Finished {
			loginsCompletedTotal.Inc()
		}
	}
}

func RecordReset() {
	sessionResetsTotal.Inc()
}

func RecordStreamStart() {
	streamClientsActive.Inc()
}

func RecordStreamEnd() {
	streamClientsActive.Dec()
}

// Observer adapts RecordStep to the pipeline observer hook.
func Observer() stream.Observer {
	return stream.ObserverFunc(RecordStep)
}
