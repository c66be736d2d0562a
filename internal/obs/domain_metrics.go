package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts quote requests by outcome.
	QuoteTotal *prometheus.CounterVec
	// ConfirmTotal counts order confirmation attempts by outcome.
	ConfirmTotal *prometheus.CounterVec
	// CouponRejections counts rejected coupon applications by reason.
	CouponRejections *prometheus.CounterVec
	// PricingStageLatency records per-stage pricing pipeline latency in milliseconds.
	PricingStageLatency *prometheus.HistogramVec
	// RefdataCacheHits counts reference-data cache hits by dataset.
	RefdataCacheHits *prometheus.CounterVec
	// RefdataCacheMisses counts reference-data cache misses by dataset.
	RefdataCacheMisses *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quote_total",
			Help:      "Count of quote requests by outcome.",
		}, []string{"result"})
		ConfirmTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_confirm_total",
			Help:      "Count of order confirmation attempts by outcome.",
		}, []string{"result"})
		CouponRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_rejections_total",
			Help:      "Count of rejected coupon applications by reason.",
		}, []string{"reason"})
		PricingStageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_stage_duration_ms",
			Help:      "Latency of pricing pipeline stages in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"stage"})
		RefdataCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refdata_cache_hits_total",
			Help:      "Reference-data cache hits by dataset.",
		}, []string{"dataset"})
		RefdataCacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refdata_cache_misses_total",
			Help:      "Reference-data cache misses by dataset.",
		}, []string{"dataset"})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, ConfirmTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ConfirmTotal = v
			}
		})
		mustRegisterCollector(reg, CouponRejections, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRejections = v
			}
		})
		mustRegisterCollector(reg, PricingStageLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				PricingStageLatency = v
			}
		})
		mustRegisterCollector(reg, RefdataCacheHits, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RefdataCacheHits = v
			}
		})
		mustRegisterCollector(reg, RefdataCacheMisses, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RefdataCacheMisses = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
