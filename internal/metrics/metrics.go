// Package metrics defines and registers the Prometheus metrics of the auction
// service. Metrics are registered with the default registry on package init
// and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auctions"

// ── Domain metrics ────────────────────────────────────────────────────────────

// ListingsCreatedTotal counts listings created.
var ListingsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_created_total",
		Help:      "Total number of listings created.",
	},
)

// BidsAcceptedTotal counts bids recorded against a listing.
var BidsAcceptedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_accepted_total",
		Help:      "Total number of bids accepted.",
	},
)

// BidsRejectedTotal counts bids that were refused.
// Label:
//   - reason: "too_low", "closed", "invalid_amount", "not_found", "unauthenticated"
var BidsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_rejected_total",
		Help:      "Total number of bids rejected, by reason.",
	},
	[]string{"reason"},
)

// AuctionsClosedTotal counts closed auctions.
// Label:
//   - outcome: "sold" when a winner was assigned, "unsold" otherwise
var AuctionsClosedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auctions_closed_total",
		Help:      "Total number of auctions closed, by outcome.",
	},
	[]string{"outcome"},
)

// WatchlistTogglesTotal counts watchlist membership flips.
// Label:
//   - action: "added" or "removed"
var WatchlistTogglesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watchlist_toggles_total",
		Help:      "Total number of watchlist toggles, by resulting action.",
	},
	[]string{"action"},
)

// CommentsCreatedTotal counts comments posted.
var CommentsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comments_created_total",
		Help:      "Total number of comments posted.",
	},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method: HTTP method
//   - route: matched route pattern (e.g. "/listings/:id"), or "unmatched"
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// Bid rejection reasons
const (
	ReasonTooLow          = "too_low"
	ReasonClosed          = "closed"
	ReasonInvalidAmount   = "invalid_amount"
	ReasonNotFound        = "not_found"
	ReasonUnauthenticated = "unauthenticated"
)
