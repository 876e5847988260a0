package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/merchledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transfer metrics
	TransfersCreated prometheus.Counter
	TransferDuration prometheus.Histogram
	TransferAmount   prometheus.Histogram

	// Purchase metrics
	PurchasesCreated *prometheus.CounterVec
	PurchaseDuration prometheus.Histogram
	CoinsSpent       prometheus.Counter

	// Ledger errors, by operation and error type
	LedgerErrors *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Outbox metrics
	EventsPublished prometheus.Counter
	EventsFailed    prometheus.Counter
}

// New creates all metrics and registers them with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Transfer metrics
		TransfersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "merchledger_transfers_created_total",
			Help: "Total number of coin transfers committed",
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "merchledger_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "merchledger_transfer_amount",
			Help:    "Transfer amounts in coins",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 10000},
		}),

		// Purchase metrics
		PurchasesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchledger_purchases_created_total",
				Help: "Total number of purchases committed by item",
			},
			[]string{"item"},
		),
		PurchaseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "merchledger_purchase_duration_seconds",
			Help:    "Duration of purchase operations",
			Buckets: prometheus.DefBuckets,
		}),
		CoinsSpent: factory.NewCounter(prometheus.CounterOpts{
			Name: "merchledger_coins_spent_total",
			Help: "Total coins spent on merchandise",
		}),

		LedgerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchledger_ledger_errors_total",
				Help: "Total number of rejected or failed ledger operations",
			},
			[]string{"operation", "error_type"},
		),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "merchledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "merchledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Redis metrics
		RedisOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Authentication metrics
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merchledger_auth_attempts_total",
				Help: "Total authentication attempts",
			},
			[]string{"status"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "merchledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		// Outbox metrics
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "merchledger_events_published_total",
			Help: "Total outbox events published",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "merchledger_events_failed_total",
			Help: "Total outbox events that failed to publish",
		}),
	}
}

// ObserveTransfer records a committed transfer.
func (m *Metrics) ObserveTransfer(amount int64, duration time.Duration) {
	m.TransfersCreated.Inc()
	m.TransferAmount.Observe(float64(amount))
	m.TransferDuration.Observe(duration.Seconds())
}

// ObservePurchase records a committed purchase.
func (m *Metrics) ObservePurchase(item string, price int64, duration time.Duration) {
	m.PurchasesCreated.WithLabelValues(item).Inc()
	m.CoinsSpent.Add(float64(price))
	m.PurchaseDuration.Observe(duration.Seconds())
}

// ObserveLedgerError records a rejected or failed operation.
func (m *Metrics) ObserveLedgerError(operation string, err error) {
	m.LedgerErrors.WithLabelValues(operation, ErrorType(err)).Inc()
}

// ObserveAccountCreated records a newly registered account.
func (m *Metrics) ObserveAccountCreated() {
	m.AccountsCreated.Inc()
}

// ObserveHTTPRequest records a served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveRedisOperation records a Redis command and whether it failed.
func (m *Metrics) ObserveRedisOperation(operation string, err error) {
	m.RedisOperations.WithLabelValues(operation).Inc()
	if err != nil {
		m.RedisErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveAuthAttempt records the outcome of a login request.
func (m *Metrics) ObserveAuthAttempt(status string) {
	m.AuthAttempts.WithLabelValues(status).Inc()
}

// ErrorType maps an error to a low-cardinality label value.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrRecipientNotFound):
		return "recipient_not_found"
	case errors.Is(err, domain.ErrSameAccount):
		return "same_account"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrItemNotFound):
		return "item_not_found"
	default:
		return "internal"
	}
}

// ObserveEventPublished records an outbox event delivered to the broker.
func (m *Metrics) ObserveEventPublished() {
	m.EventsPublished.Inc()
}

// ObserveEventFailed records an outbox event that could not be delivered.
func (m *Metrics) ObserveEventFailed() {
	m.EventsFailed.Inc()
}
