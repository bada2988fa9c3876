package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

// DefaultHoldingsCollection is the Firestore collection holding documents
// live in.
const DefaultHoldingsCollection = "portfolios"

// holdingDoc is the Firestore document layout. Field names and the ISO-8601
// addedAt follow the web client's documents, but every query filters on
// userId, so documents written without an owner are never returned.
type holdingDoc struct {
	UserID   string  `firestore:"userId"`
	CoinName string  `firestore:"coinName"`
	Quantity float64 `firestore:"quantity"`
	BuyPrice float64 `firestore:"buyPrice"`
	AddedAt  string  `firestore:"addedAt"`
}

// FirestoreHoldingRepository stores holdings in a Firestore collection and
// uses snapshot listeners as the change stream.
type FirestoreHoldingRepository struct {
	client     *firestore.Client
	collection string
	logger     *logging.Logger
	retryDelay time.Duration
}

// snapshotIterator is the part of *firestore.QuerySnapshotIterator the
// listener uses.
type snapshotIterator interface {
	Next() (*firestore.QuerySnapshot, error)
	Stop()
}

func NewFirestoreHoldingRepository(client *firestore.Client, collection string, logger *logging.Logger) *FirestoreHoldingRepository {
	if collection == "" {
		collection = DefaultHoldingsCollection
	}
	return &FirestoreHoldingRepository{
		client:     client,
		collection: collection,
		logger:     logger,
		retryDelay: 5 * time.Second,
	}
}

func (r *FirestoreHoldingRepository) userQuery(userID string) firestore.Query {
	return r.client.Collection(r.collection).Where("userId", "==", userID)
}

func (r *FirestoreHoldingRepository) ListHoldings(ctx context.Context, userID string) ([]domain.Holding, error) {
	docs, err := r.userQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}

	holdings := make([]domain.Holding, 0, len(docs))
	for _, snap := range docs {
		var d holdingDoc
		if err := snap.DataTo(&d); err != nil {
			r.logger.Warn().Err(err).Str("doc", snap.Ref.ID).Msg("skipping unreadable holding")
			continue
		}
		addedAt, _ := time.Parse(time.RFC3339Nano, d.AddedAt)
		holdings = append(holdings, domain.Holding{
			ID:       snap.Ref.ID,
			UserID:   d.UserID,
			CoinID:   d.CoinName,
			Quantity: d.Quantity,
			BuyPrice: d.BuyPrice,
			AddedAt:  addedAt.UTC(),
		})
	}
	sortHoldings(holdings)
	return holdings, nil
}

func (r *FirestoreHoldingRepository) AddHolding(ctx context.Context, h domain.Holding) (domain.Holding, error) {
	ref, _, err := r.client.Collection(r.collection).Add(ctx, holdingDoc{
		UserID:   h.UserID,
		CoinName: h.CoinID,
		Quantity: h.Quantity,
		BuyPrice: h.BuyPrice,
		AddedAt:  h.AddedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return domain.Holding{}, fmt.Errorf("add holding: %w", err)
	}
	h.ID = ref.ID
	return h, nil
}

func (r *FirestoreHoldingRepository) DeleteHolding(ctx context.Context, userID, id string) error {
	ref := r.client.Collection(r.collection).Doc(id)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.ErrHoldingNotFound
	}
	if err != nil {
		return fmt.Errorf("get holding: %w", err)
	}

	var d holdingDoc
	if err := snap.DataTo(&d); err != nil || d.UserID != userID {
		return domain.ErrHoldingNotFound
	}

	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	return nil
}

// Subscribe listens to the user's documents until the returned func is
// called. A failed listener is reopened after retryDelay.
func (r *FirestoreHoldingRepository) Subscribe(ctx context.Context, userID string, fn func()) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	open := func(ctx context.Context) snapshotIterator {
		return r.userQuery(userID).Snapshots(ctx)
	}
	go r.watch(ctx, userID, open, fn)
	return cancel, nil
}

func (r *FirestoreHoldingRepository) watch(ctx context.Context, userID string, open func(context.Context) snapshotIterator, fn func()) {
	reopened := false
	for {
		err := watchSnapshots(open(ctx), reopened, fn)
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn().Err(err).Str("user", userID).Dur("retry_in", r.retryDelay).Msg("holdings listener stopped")

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retryDelay):
		}
		reopened = true
	}
}

// watchSnapshots calls fn for every snapshot with changes. The first
// snapshot mirrors the current state and only counts as a change on a
// reopened listener, since updates may have been missed while it was down.
func watchSnapshots(it snapshotIterator, reopened bool, fn func()) error {
	defer it.Stop()
	first := true
	for {
		snap, err := it.Next()
		if err != nil {
			return err
		}
		if first {
			first = false
			if reopened {
				fn()
			}
			continue
		}
		if len(snap.Changes) > 0 {
			fn()
		}
	}
}

var _ domain.HoldingStore = (*FirestoreHoldingRepository)(nil)
