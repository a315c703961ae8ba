// Package metrics holds the prometheus collectors for the rating core, the
// HTTP surface and the rating audit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TxAttempts counts every transaction attempt.
	// Labels: op (cast_vote, accept_answer, repair_rating)
	TxAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "tx",
		Name:      "attempts_total",
		Help:      "Transaction attempts per operation",
	}, []string{"op"})

	// TxRetries counts attempts that failed transiently and were retried.
	// Labels: op
	TxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "tx",
		Name:      "retries_total",
		Help:      "Transient transaction failures that led to a retry",
	}, []string{"op"})

	// TxOutcomes counts finished operations by error kind.
	// Labels: op, outcome (ok, not_found, invalid_argument, forbidden, transient, unknown)
	TxOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "tx",
		Name:      "outcomes_total",
		Help:      "Finished operations by outcome",
	}, []string{"op", "outcome"})

	// TxDuration measures an operation including all of its retries.
	// Labels: op
	TxDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qa_forum",
		Subsystem: "tx",
		Name:      "duration_seconds",
		Help:      "Operation latency including retries",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"op"})

	// VoteActions counts vote engine results.
	// Labels: action (added vote, removed vote, changed vote)
	VoteActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "votes",
		Name:      "actions_total",
		Help:      "Votes cast by resulting action",
	}, []string{"action"})

	// AcceptActions counts acceptance engine results.
	// Labels: action (accepted, unaccepted)
	AcceptActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "acceptance",
		Name:      "actions_total",
		Help:      "Acceptance toggles by resulting action",
	}, []string{"action"})

	// AchievementsAwarded counts new awards. Repeated awards are not counted.
	// Labels: code
	AchievementsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "achievements",
		Name:      "awarded_total",
		Help:      "Achievements granted",
	}, []string{"code"})

	// RatingDrift counts rows found with a stored rating that disagrees with
	// the votes, per audit run.
	// Labels: kind (question, answer, user)
	RatingDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "audit",
		Name:      "rating_drift_total",
		Help:      "Rows whose stored rating differed from the recomputed value",
	}, []string{"kind"})

	// HTTPRequests counts served requests.
	// Labels: method, route, status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qa_forum",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served",
	}, []string{"method", "route", "status"})

	// HTTPDuration measures request latency.
	// Labels: method, route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qa_forum",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
