// Package metrics exports what replicas accept and drop as Prometheus
// metrics.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/replica"
)

const (
	replicaLabel = "replica"
	typeLabel    = "type"
	reasonLabel  = "reason"
)

var _ replica.Observer = (*Metrics)(nil)

// Metrics is a replica.Observer backed by Prometheus collectors.
type Metrics struct {
	accepted *prometheus.CounterVec
	rejected *prometheus.CounterVec
	turn     *prometheus.GaugeVec
	moves    *prometheus.GaugeVec
}

func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		accepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hangouts_actions_accepted_total",
				Help: "number of actions applied by a replica",
			},
			[]string{replicaLabel, typeLabel},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hangouts_actions_rejected_total",
				Help: "number of actions dropped by a replica",
			},
			[]string{replicaLabel, typeLabel, reasonLabel},
		),
		turn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hangouts_turn",
				Help: "player whose move a replica expects next",
			},
			[]string{replicaLabel},
		),
		moves: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hangouts_log_length",
				Help: "number of moves in a replica's log",
			},
			[]string{replicaLabel},
		),
	}
	err := errors.Join(
		registerer.Register(m.accepted),
		registerer.Register(m.rejected),
		registerer.Register(m.turn),
		registerer.Register(m.moves),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) Accepted(s replica.State, a action.Action) {
	id := strconv.Itoa(int(s.PlayerID()))
	m.accepted.With(prometheus.Labels{
		replicaLabel: id,
		typeLabel:    string(a.Type()),
	}).Inc()
	m.turn.WithLabelValues(id).Set(float64(s.Turn()))
	m.moves.WithLabelValues(id).Set(float64(s.Log().Len()))
}

func (m *Metrics) Rejected(s replica.State, a action.Action, reason replica.Reason) {
	m.rejected.With(prometheus.Labels{
		replicaLabel: strconv.Itoa(int(s.PlayerID())),
		typeLabel:    string(a.Type()),
		reasonLabel:  string(reason),
	}).Inc()
}
