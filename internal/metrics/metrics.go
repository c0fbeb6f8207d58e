package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_product_searches_total",
		Help: "Product lookup searches executed against the resolver.",
	})

	StaleLookupDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_stale_lookup_drops_total",
		Help: "Lookup results discarded because a newer query superseded them.",
	})

	SearchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_search_cache_hits_total",
		Help: "Product searches served from the cache.",
	})

	SaveRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_save_rejections_total",
		Help: "Quotation saves rejected by local precondition checks.",
	})

	QuotationsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_quotations_saved_total",
		Help: "Quotations persisted successfully.",
	})
)
