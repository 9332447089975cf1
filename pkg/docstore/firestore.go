package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	"github.com/angelmondragon/ecofinds-storefront/pkg/gcp"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const healthCollection = "_health"

// Firestore stores documents in Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, cfg config.GCPConfig, logg *logger.Logger) (*Firestore, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}

	client, err := firestore.NewClient(ctx, projectID, gcp.ClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "firestore client initialized")
	}
	return &Firestore{client: client}, nil
}

// Client exposes the raw client for callers that need transactions.
func (f *Firestore) Client() *firestore.Client {
	return f.client
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if snap == nil || !snap.Exists() {
		return Document{}, ErrNotFound
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, cloneData(data))
	return err
}

func (f *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, cloneData(data))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *Firestore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	query := f.client.Collection(q.Collection).Query
	for _, filter := range q.Filters {
		query = query.Where(filter.Field, "==", filter.Value)
	}
	for _, order := range q.OrderBy {
		dir := firestore.Asc
		if order.Direction == Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(order.Field, dir)
	}
	if len(q.StartAfter) > 0 {
		query = query.StartAfter(q.StartAfter...)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return out, nil
}

// Ping performs a point read; a missing document still proves connectivity.
func (f *Firestore) Ping(ctx context.Context) error {
	_, err := f.client.Collection(healthCollection).Doc("ping").Get(ctx)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
