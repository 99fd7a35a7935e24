package repo

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
)

// ProfilesCollection is the Firestore collection holding one document per principal.
const ProfilesCollection = "users"

type profileDoc struct {
	Email     string    `firestore:"email"`
	Role      string    `firestore:"role"`
	StoreID   *string   `firestore:"storeId,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// FirestoreRepository stores profiles as documents keyed by principal id.
type FirestoreRepository struct {
	client *firestore.Client
}

var _ Repository = (*FirestoreRepository)(nil)

// NewFirestoreRepository constructs a repository on the given client.
func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	if client == nil {
		panic("firestore client is required")
	}
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) Create(ctx context.Context, p identity.Profile) (identity.Profile, error) {
	doc := profileDoc{Email: p.Email, Role: string(p.Role), StoreID: p.TenantID, CreatedAt: p.CreatedAt}
	if _, err := r.client.Collection(ProfilesCollection).Doc(p.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return identity.Profile{}, ErrConflict
		}
		return identity.Profile{}, fmt.Errorf("create profile document: %w", err)
	}
	return p, nil
}

func (r *FirestoreRepository) Get(ctx context.Context, id string) (identity.Profile, error) {
	snap, err := r.client.Collection(ProfilesCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return identity.Profile{}, ErrNotFound
		}
		return identity.Profile{}, fmt.Errorf("get profile document: %w", err)
	}

	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return identity.Profile{}, fmt.Errorf("decode profile %s: %w", id, err)
	}
	role, err := identity.ParseRole(doc.Role)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", id, err)
	}
	return identity.Profile{ID: id, Email: doc.Email, Role: role, TenantID: doc.StoreID, CreatedAt: doc.CreatedAt}, nil
}
