// Package banksync reconciles the aggregator's transaction, balance and item
// feeds against locally persisted bank accounts.
package banksync

import (
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"ledgerly/internal/domain/bankaccount"
	"ledgerly/internal/domain/transaction"
	"ledgerly/internal/infrastructure/aggregator"
)

const (
	syncWindowDays             = 30
	transactionPageSize        = 500
	defaultMaxTransactionPages = 20
)

var (
	syncTracer              = otel.Tracer("ledgerly/banksync")
	syncMeter               = otel.Meter("ledgerly/banksync")
	transactionsUpserted, _ = syncMeter.Int64Counter("banksync.transactions.upserted", metric.WithDescription("Transactions written during sync by result"))
	accountSyncTotal, _     = syncMeter.Int64Counter("banksync.account.sync", metric.WithDescription("Per-account syncs by status"))
)

// LinkConfig describes how relink tokens are minted.
type LinkConfig struct {
	ClientName string
	Language   string
	WebhookURL string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for sync windows and stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCountryCodes sets the country filter for institution lookups and link tokens.
func WithCountryCodes(codes []string) Option {
	return func(s *Service) { s.countryCodes = codes }
}

// WithLinkConfig sets the relink token parameters.
func WithLinkConfig(cfg LinkConfig) Option {
	return func(s *Service) { s.link = cfg }
}

// WithMaxTransactionPages caps how many pages a single account sync may pull.
func WithMaxTransactionPages(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// Service is the sync engine. All aggregator and storage access goes through
// the injected collaborators.
type Service struct {
	client       aggregator.ClientInterface
	accounts     bankaccount.Repository
	transactions transaction.Repository

	now          func() time.Time
	countryCodes []string
	link         LinkConfig
	maxPages     int

	locks      *keyedMutex
	itemStatus singleflight.Group
}

// NewService creates a sync engine
func NewService(client aggregator.ClientInterface, accounts bankaccount.Repository, transactions transaction.Repository, opts ...Option) *Service {
	s := &Service{
		client:       client,
		accounts:     accounts,
		transactions: transactions,
		now:          time.Now,
		countryCodes: []string{"US"},
		link:         LinkConfig{ClientName: "Ledgerly", Language: "en"},
		maxPages:     defaultMaxTransactionPages,
		locks:        newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
