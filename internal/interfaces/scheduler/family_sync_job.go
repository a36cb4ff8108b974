package scheduler

import (
	"context"
	"fmt"
	"log"

	"ledgerly/internal/domain/banksync"
)

// FamilySyncer is the slice of the sync engine a scheduled run needs.
type FamilySyncer interface {
	SyncAllTransactions(ctx context.Context, familyID int64) ([]*banksync.AccountSyncResult, error)
	GetAccountBalances(ctx context.Context, familyID int64) ([]*banksync.AccountBalance, error)
}

// FamilySyncJob pulls transactions for every eligible account of a family,
// then refreshes balances so they reflect the same pull.
type FamilySyncJob struct {
	familyID int64
	syncer   FamilySyncer
}

// NewFamilySyncJob creates a new sync job for a family
func NewFamilySyncJob(familyID int64, syncer FamilySyncer) *FamilySyncJob {
	return &FamilySyncJob{
		familyID: familyID,
		syncer:   syncer,
	}
}

// Execute runs transaction sync, then balance refresh.
// Per-account failures are reported in the error but do not stop the balance phase.
func (j *FamilySyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting scheduled sync for family %d", j.familyID)

	results, err := j.syncer.SyncAllTransactions(ctx, j.familyID)
	if err != nil {
		return fmt.Errorf("transaction sync failed: %w", err)
	}

	var created, updated, failed int
	for _, r := range results {
		if r.Status == banksync.ResultError {
			failed++
			continue
		}
		created += r.NewTransactions
		updated += r.UpdatedTransactions
	}

	balances, err := j.syncer.GetAccountBalances(ctx, j.familyID)
	if err != nil {
		return fmt.Errorf("balance refresh failed: %w", err)
	}

	if failed > 0 {
		log.Printf("Scheduled sync for family %d completed with errors: Accounts=%d, Failed=%d, Created=%d, Updated=%d, Balances=%d",
			j.familyID, len(results), failed, created, updated, len(balances))
		return fmt.Errorf("sync completed with %d failed accounts", failed)
	}

	log.Printf("Scheduled sync for family %d completed successfully: Accounts=%d, Created=%d, Updated=%d, Balances=%d",
		j.familyID, len(results), created, updated, len(balances))

	return nil
}

func (j *FamilySyncJob) FamilyID() int64 {
	return j.familyID
}

// Description returns a human-readable description of the job
func (j *FamilySyncJob) Description() string {
	return fmt.Sprintf("Transaction and balance sync for family %d", j.familyID)
}

// FamilyLister finds families that still have something to sync.
type FamilyLister interface {
	ListFamiliesWithLinkedAccounts(ctx context.Context) ([]int64, error)
}

// NewFamilyJobProvider returns a job provider yielding one FamilySyncJob per family
// with linked, non-deleted, non-disconnected accounts.
func NewFamilyJobProvider(families FamilyLister, syncer FamilySyncer) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		ids, err := families.ListFamiliesWithLinkedAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list families: %w", err)
		}

		jobs := make([]Job, 0, len(ids))
		for _, id := range ids {
			jobs = append(jobs, NewFamilySyncJob(id, syncer))
		}
		return jobs, nil
	}
}
