package listener

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"ledgerly/internal/domain/banksync"
)

const (
	// ChannelName is the NOTIFY channel other services use to request a sync.
	ChannelName       = "bank_account_sync_requested"
	reconnectInterval = 5 * time.Second
	requestTimeout    = 5 * time.Minute
	// maxInFlightSyncs bounds how many requested syncs run at once.
	maxInFlightSyncs = 4
)

var errEmptyRequest = errors.New("sync request names neither an account nor a family")

// SyncRequest is the payload of a NOTIFY on ChannelName.
// Exactly one of the fields is expected to be set.
type SyncRequest struct {
	AccountID int64 `json:"account_id,omitempty"`
	FamilyID  int64 `json:"family_id,omitempty"`
}

// Syncer is the part of the sync engine the listener drives
type Syncer interface {
	SyncTransactionsForAccount(ctx context.Context, accountID int64) (*banksync.AccountSyncResult, error)
	SyncAllTransactions(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error)
}

// SyncRequestListener listens for PostgreSQL notifications requesting out-of-band syncs
type SyncRequestListener struct {
	connStr    string
	syncer     Syncer
	shutdownCh chan struct{}
	done       chan struct{}

	slots    chan struct{}
	inflight sync.WaitGroup
}

// NewSyncRequestListener creates a new listener for sync request notifications
func NewSyncRequestListener(connStr string, syncer Syncer) *SyncRequestListener {
	return &SyncRequestListener{
		connStr:    connStr,
		syncer:     syncer,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
		slots:      make(chan struct{}, maxInFlightSyncs),
	}
}

// Start begins listening for notifications in a background goroutine
func (l *SyncRequestListener) Start(ctx context.Context) {
	go l.listen(ctx)
	log.Println("Sync request listener started")
}

// Stop shuts down the listener and waits for in-flight syncs to finish
func (l *SyncRequestListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	l.inflight.Wait()
	log.Println("Sync request listener stopped")
}

func (l *SyncRequestListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			log.Println("Reconnecting to PostgreSQL for sync requests...")
		}
	}
}

func (l *SyncRequestListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("Connected to PostgreSQL notification channel")
		case pq.ListenerEventDisconnected:
			log.Printf("Disconnected from PostgreSQL notification channel: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("Reconnected to PostgreSQL notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("Connection attempt failed: %v", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChannelName); err != nil {
		log.Printf("Failed to listen on channel %s: %v", ChannelName, err)
		return
	}

	log.Printf("Listening on channel: %s", ChannelName)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// connection lost
				return
			}
			req, err := parseSyncRequest(n.Extra)
			if err != nil {
				log.Printf("Ignoring notification on %s: %v", n.Channel, err)
				continue
			}
			if !l.dispatch(ctx, req) {
				return
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("Listener ping failed: %v", err)
				}
			}()
		}
	}
}

// dispatch runs req in the background once a slot frees up. The sync itself is
// detached from ctx so a shutdown does not abort it half way; Stop waits for it.
// It returns false when shutdown began while waiting for a slot.
func (l *SyncRequestListener) dispatch(ctx context.Context, req SyncRequest) bool {
	select {
	case l.slots <- struct{}{}:
	case <-l.shutdownCh:
		return false
	case <-ctx.Done():
		return false
	}

	l.inflight.Add(1)
	go func() {
		defer func() {
			<-l.slots
			l.inflight.Done()
		}()
		l.handle(context.Background(), req)
	}()
	return true
}

func parseSyncRequest(payload string) (SyncRequest, error) {
	var req SyncRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return req, err
	}
	if req.AccountID <= 0 && req.FamilyID <= 0 {
		return req, errEmptyRequest
	}
	return req, nil
}

func (l *SyncRequestListener) handle(ctx context.Context, req SyncRequest) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if req.AccountID > 0 {
		if _, err := l.syncer.SyncTransactionsForAccount(ctx, req.AccountID); err != nil {
			log.Printf("Account %d: requested sync failed: %v", req.AccountID, err)
		}
		return
	}

	results, err := l.syncer.SyncAllTransactions(ctx, req.FamilyID)
	if err != nil {
		log.Printf("Family %d: requested sync failed: %v", req.FamilyID, err)
		return
	}
	log.Printf("Family %d: requested sync finished for %d accounts", req.FamilyID, len(results))
}
