package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackergrows_votes_cast_total",
		Help: "Votes recorded, by whether they moved the counters",
	}, []string{"effect"})

	votesRetracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hackergrows_votes_retracted_total",
		Help: "Votes withdrawn by their voter",
	})

	itemsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackergrows_items_created_total",
		Help: "Stories and comments created",
	}, []string{"kind"})

	itemsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackergrows_items_deleted_total",
		Help: "Stories and comments deleted by their owner",
	}, []string{"kind"})

	duplicatesLinked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hackergrows_duplicates_linked_total",
		Help: "Stories recognised as duplicates of an existing submission",
	})

	titleFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackergrows_title_fetches_total",
		Help: "Remote title lookups, by outcome",
	}, []string{"result"})

	counterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackergrows_counter_drift_total",
		Help: "Denormalized counters found out of line with the vote and comment rows",
	}, []string{"field"})
)

func effectLabel(effective bool) string {
	if effective {
		return "effective"
	}
	return "inert"
}
