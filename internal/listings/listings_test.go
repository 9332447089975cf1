package listings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/ecofinds-storefront/internal/catalog"
	"github.com/angelmondragon/ecofinds-storefront/internal/identity"
	"github.com/angelmondragon/ecofinds-storefront/internal/media"
	"github.com/angelmondragon/ecofinds-storefront/pkg/docstore"
	"github.com/angelmondragon/ecofinds-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type stubUploader struct {
	calls []media.Image
	url   string
	err   error
}

func (s *stubUploader) Upload(_ context.Context, img media.Image) (string, error) {
	s.calls = append(s.calls, img)
	return s.url, s.err
}

var fixedNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, up media.Uploader) (Service, *catalog.Repository) {
	t.Helper()
	repo := catalog.NewRepository(docstore.NewMemory())
	svc, err := NewService(ServiceParams{
		Products: repo,
		Uploader: up,
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func validInput() CreateInput {
	return CreateInput{
		Title:       "Vintage desk lamp",
		Description: "Brass lamp, rewired last year.",
		Category:    string(enums.ProductCategoryHomeGarden),
		Price:       35,
		Tags:        " vintage, ,lighting ",
	}
}

func TestCreateStoresAvailableListing(t *testing.T) {
	up := &stubUploader{url: "https://cdn.example/lamp.png"}
	svc, repo := newTestService(t, up)
	seller := identity.Session{UID: "u1", Username: "lampco", Email: "l@x.io"}

	p, err := svc.Create(context.Background(), seller, validInput(), &Upload{Data: png, FileName: "lamp.png"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.Status != enums.ProductStatusAvailable || p.SellerName != "lampco" {
		t.Fatalf("unexpected product %+v", p)
	}
	if p.Condition == nil || *p.Condition != enums.DefaultProductCondition {
		t.Fatalf("expected default condition, got %v", p.Condition)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "vintage" || p.Tags[1] != "lighting" {
		t.Fatalf("unexpected tags %v", p.Tags)
	}
	if len(up.calls) != 1 || up.calls[0].ContentType != "image/png" {
		t.Fatalf("expected sniffed upload, got %+v", up.calls)
	}

	stored, err := repo.FindByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.ImageURL == nil || *stored.ImageURL != "https://cdn.example/lamp.png" || !stored.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected stored product %+v", stored)
	}
}

func TestCreateValidationMessages(t *testing.T) {
	svc, _ := newTestService(t, nil)
	input := CreateInput{Title: "Lamp", Description: "short", Category: "Furniture", Price: 20000}

	_, err := svc.Create(context.Background(), identity.Session{UID: "u1"}, input, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	want := map[string]string{
		"title":       "Title must be at least 5 characters long",
		"description": "Description must be at least 10 characters long",
		"category":    "Please select a category",
		"price":       "Price cannot exceed $10,000",
	}
	for field, msg := range want {
		if details[field] != msg {
			t.Fatalf("field %s: got %q want %q", field, details[field], msg)
		}
	}

	input = validInput()
	input.Price = 0
	_, err = svc.Create(context.Background(), identity.Session{UID: "u1"}, input, nil)
	if got := pkgerrors.As(err).Details().(map[string]string)["price"]; got != "Please enter a valid price greater than $0" {
		t.Fatalf("unexpected price message %q", got)
	}
}

func TestCreateRejectsBadImagesAndAnonymous(t *testing.T) {
	up := &stubUploader{url: "https://cdn.example/x"}
	svc, _ := newTestService(t, up)

	if _, err := svc.Create(context.Background(), identity.Session{}, validInput(), nil); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	_, err := svc.Create(context.Background(), identity.Session{UID: "u1"}, validInput(), &Upload{Data: []byte("not an image at all")})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) || len(up.calls) != 0 {
		t.Fatalf("expected image validation before upload, got %v", err)
	}

	up.err = errors.New("cdn down")
	if _, err := svc.Create(context.Background(), identity.Session{UID: "u1"}, validInput(), &Upload{Data: png}); err == nil {
		t.Fatal("expected upload failure")
	}
}

func TestRemoveIsSellerOnly(t *testing.T) {
	svc, repo := newTestService(t, nil)
	seller := identity.Session{UID: "u1"}
	p, err := svc.Create(context.Background(), seller, validInput(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Remove(context.Background(), identity.Session{UID: "u2"}, p.ID); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.Remove(context.Background(), seller, "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Remove(context.Background(), seller, p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), p.ID)
	if stored.Status != enums.ProductStatusRemoved {
		t.Fatalf("expected removed status, got %s", stored.Status)
	}
	page, err := repo.ListAvailable(context.Background(), 10, nil)
	if err != nil || len(page) != 0 {
		t.Fatalf("removed listing should be hidden, got %v err %v", page, err)
	}
}

func TestSplitTagsAndCategories(t *testing.T) {
	if got := SplitTags(""); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", got)
	}
	svc, _ := newTestService(t, nil)
	if got := svc.Categories(); len(got) != 10 || got[0] != enums.ProductCategoryElectronics {
		t.Fatalf("unexpected categories %v", got)
	}
}
