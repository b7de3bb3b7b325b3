package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// firestoreTripStore implements TripDocumentStore on a single Firestore document.
type firestoreTripStore struct {
	client *firestore.Client
	tripID string
}

// NewFirestoreTripStore creates a store bound to trips/{tripID}.
func NewFirestoreTripStore(client *firestore.Client, tripID string) TripDocumentStore {
	if client == nil {
		log.Fatal("Firestore client is not initialized for TripDocumentStore.")
	}
	if tripID == "" {
		tripID = models.DefaultTripID
	}
	return &firestoreTripStore{client: client, tripID: tripID}
}

// doc returns the reference of the shared trip document, trips/{tripID}.
func (r *firestoreTripStore) doc() *firestore.DocumentRef {
	return r.client.Collection(models.TripsCollection).Doc(r.tripID)
}

// Get reads the trip document. Firestore reports a missing document as NotFound,
// which is mapped to a snapshot with Exists == false.
func (r *firestoreTripStore) Get(ctx context.Context) (*DocumentSnapshot, error) {
	docSnap, err := r.doc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &DocumentSnapshot{Exists: false}, nil
		}
		return nil, fmt.Errorf("failed to get trip '%s': %w", r.tripID, err)
	}
	return fromFirestore(docSnap), nil
}

// UpdateField only succeeds on an existing document.
func (r *firestoreTripStore) UpdateField(ctx context.Context, field string, value interface{}) error {
	// FieldPath keeps the name literal; a dotted Path would address a nested field.
	_, err := r.doc().Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{field}, Value: value},
	})
	if err != nil {
		// The caller decides whether to fall back to a merge-create.
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("trip '%s' field '%s': %w", r.tripID, field, ErrDocumentNotFound)
		}
		return fmt.Errorf("failed to update field '%s' of trip '%s': %w", field, r.tripID, err)
	}
	return nil
}

// MergeField uses Set with MergeAll so a concurrently created document keeps its other fields.
func (r *firestoreTripStore) MergeField(ctx context.Context, field string, value interface{}) error {
	_, err := r.doc().Set(ctx, map[string]interface{}{field: value}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to merge field '%s' into trip '%s': %w", field, r.tripID, err)
	}
	return nil
}

// Watch wraps Firestore's snapshot listener. The SDK reconnects on transient errors.
func (r *firestoreTripStore) Watch(ctx context.Context) SnapshotIterator {
	return &firestoreSnapshotIterator{it: r.doc().Snapshots(ctx)}
}

// Ping reads the document; NotFound still proves the backend is reachable.
func (r *firestoreTripStore) Ping(ctx context.Context) error {
	_, err := r.Get(ctx)
	return err
}

// firestoreSnapshotIterator adapts the SDK iterator to SnapshotIterator.
type firestoreSnapshotIterator struct {
	it *firestore.DocumentSnapshotIterator
}

// Next blocks until the next snapshot. Stop and a done context are reported as
// ErrIteratorStopped and context.Canceled so callers need not know gRPC codes.
func (i *firestoreSnapshotIterator) Next() (*DocumentSnapshot, error) {
	docSnap, err := i.it.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, ErrIteratorStopped
		}
		if status.Code(err) == codes.Canceled {
			return nil, context.Canceled
		}
		return nil, err
	}
	return fromFirestore(docSnap), nil
}

func (i *firestoreSnapshotIterator) Stop() { i.it.Stop() }

// fromFirestore copies the parts of a Firestore snapshot the sync layer uses.
func fromFirestore(docSnap *firestore.DocumentSnapshot) *DocumentSnapshot {
	if docSnap == nil || !docSnap.Exists() {
		return &DocumentSnapshot{Exists: false}
	}
	return &DocumentSnapshot{
		Exists:     true,
		Data:       docSnap.Data(),
		UpdateTime: docSnap.UpdateTime,
	}
}
