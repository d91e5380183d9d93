package browse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchesTotal counts page requests by kind (authoritative, prefetch)
	// and outcome (cache, network, error, discarded)
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dino_browse_fetches_total",
			Help: "Total browse page requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// debouncedEdits counts filter edits coalesced by the debouncer
	debouncedEdits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dino_browse_debounced_edits_total",
			Help: "Filter edits replaced by a later edit before their fetch",
		},
	)
)

const (
	kindAuthoritative = "authoritative"
	kindPrefetch      = "prefetch"
)
