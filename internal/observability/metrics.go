package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// Metrics holds the Prometheus instruments fed by engine lifecycle hooks.
type Metrics struct {
	turnsTotal        prometheus.Counter
	phaseTransitions  *prometheus.CounterVec
	flowsPushed       *prometheus.CounterVec
	flowsPopped       *prometheus.CounterVec
	actionsTotal      *prometheus.CounterVec
	actionDuration    *prometheus.HistogramVec
	messagesEmitted   *prometheus.CounterVec
	errorPhaseEntered prometheus.Counter
}

// NewMetrics registers the engine instruments on the given registerer.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turnsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "turns_total",
			Help:      "Number of conversation turns processed.",
		}),
		phaseTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "phase_transitions_total",
			Help:      "Phase transitions by source and destination phase.",
		}, []string{"from", "to"}),
		flowsPushed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "flows_pushed_total",
			Help:      "Flow instances pushed onto conversation stacks.",
		}, []string{"flow"}),
		flowsPopped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "flows_popped_total",
			Help:      "Flow instances popped, by flow and result.",
		}, []string{"flow", "result"}),
		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "actions_total",
			Help:      "Action executions by action name and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "colloquy",
			Name:      "action_duration_seconds",
			Help:      "Wall time of action executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		messagesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "messages_emitted_total",
			Help:      "User-facing messages by kind.",
		}, []string{"kind"}),
		errorPhaseEntered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "colloquy",
			Name:      "error_phase_entered_total",
			Help:      "Turns that landed in the error phase.",
		}),
	}
}

// Hooks returns lifecycle hooks that feed the instruments. Wire them into
// the engine with runtime.WithLifecycleHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(_ context.Context, _ *domain.TurnEvent) {
			m.turnsTotal.Inc()
		},
		OnPhaseChange: func(_ context.Context, ev *domain.PhaseEvent) {
			m.phaseTransitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
			if ev.To == domain.PhaseError {
				m.errorPhaseEntered.Inc()
			}
		},
		OnFlowPushed: func(_ context.Context, ev *domain.FlowEvent) {
			m.flowsPushed.WithLabelValues(ev.FlowName).Inc()
		},
		OnFlowPopped: func(_ context.Context, ev *domain.FlowEvent) {
			m.flowsPopped.WithLabelValues(ev.FlowName, string(ev.Result)).Inc()
		},
		OnActionReturn: func(_ context.Context, ev *domain.ActionEvent) {
			outcome := "ok"
			if ev.IsError {
				outcome = "error"
			}
			m.actionsTotal.WithLabelValues(ev.ActionName, outcome).Inc()
			m.actionDuration.WithLabelValues(ev.ActionName).Observe(float64(ev.Duration) / float64(time.Second))
		},
		OnMessage: func(_ context.Context, ev *domain.MessageEvent) {
			m.messagesEmitted.WithLabelValues(string(ev.Kind)).Inc()
		},
	}
}
