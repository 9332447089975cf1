package identity

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
)

// ProfileCollection holds users/{uid} documents.
const ProfileCollection = "users"

var ErrProfileNotFound = errors.New("profile not found")

type Profile struct {
	UID             string
	Username        string
	Email           string
	CreatedAt       time.Time
	ProfileComplete bool
}

type ProfileRepository struct {
	store docstore.Store
}

func NewProfileRepository(store docstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

func (r *ProfileRepository) Create(ctx context.Context, p Profile) error {
	return r.store.Set(ctx, ProfileCollection, p.UID, map[string]any{
		"uid":             p.UID,
		"username":        p.Username,
		"email":           p.Email,
		"createdAt":       p.CreatedAt.UTC(),
		"profileComplete": p.ProfileComplete,
	})
}

func (r *ProfileRepository) Find(ctx context.Context, uid string) (Profile, error) {
	doc, err := r.store.Get(ctx, ProfileCollection, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		UID:             doc.ID,
		Username:        docstore.AsString(doc.Data["username"]),
		Email:           docstore.AsString(doc.Data["email"]),
		CreatedAt:       docstore.AsTime(doc.Data["createdAt"]),
		ProfileComplete: docstore.AsBool(doc.Data["profileComplete"]),
	}, nil
}
