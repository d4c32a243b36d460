// Package metrics exposes Prometheus collectors for document mutations,
// reminders, git sync and chat commands.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gittodo"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	mutations      *prometheus.CounterVec
	commands       *prometheus.CounterVec
	reminders      *prometheus.CounterVec
	remindersAhead prometheus.Gauge
	gitOps         *prometheus.CounterVec
	indexSyncs     prometheus.Counter
	entries        prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "mutations_total",
			Help:      "Document mutations by operation and outcome.",
		}, []string{"op", "status"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "processed_total",
			Help:      "Text commands processed, by command verb.",
		}, []string{"command"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "fired_total",
			Help:      "Reminders fired, by delivery outcome.",
		}, []string{"status"}),
		remindersAhead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "pending",
			Help:      "Reminders scheduled and not yet fired.",
		}),
		gitOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "git",
			Name:      "operations_total",
			Help:      "Git operations by kind and outcome.",
		}, []string{"op", "status"}),
		indexSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "syncs_total",
			Help:      "Times the search index was rebuilt from the document.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "entries",
			Help:      "Todo entries in the document at the last sync.",
		}),
	}
	reg.MustRegister(
		m.mutations, m.commands, m.reminders, m.remindersAhead,
		m.gitOps, m.indexSyncs, m.entries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMutation counts a document mutation.
func (m *Metrics) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, status(err)).Inc()
}

// ObserveCommand counts a processed text command.
func (m *Metrics) ObserveCommand(command string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
}

// ObserveReminder counts a fired reminder.
func (m *Metrics) ObserveReminder(err error) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(status(err)).Inc()
}

// SetPendingReminders records the scheduler's pending job count.
func (m *Metrics) SetPendingReminders(n int) {
	if m == nil {
		return
	}
	m.remindersAhead.Set(float64(n))
}

// ObserveGit counts a git operation.
func (m *Metrics) ObserveGit(op string, err error) {
	if m == nil {
		return
	}
	m.gitOps.WithLabelValues(op, status(err)).Inc()
}

// ObserveIndexSync counts an index rebuild and records the entry count.
func (m *Metrics) ObserveIndexSync(entries int) {
	if m == nil {
		return
	}
	m.indexSyncs.Inc()
	m.entries.Set(float64(entries))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
