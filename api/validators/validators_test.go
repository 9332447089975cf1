package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

type quantityBody struct {
	ProductID string `json:"productId" validate:"required,docid"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	d, _ := typed.Details().(map[string]string)
	return d
}

func TestDecode(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"p1","quantity":2}`))
	body, err := Decode[quantityBody](httptest.NewRecorder(), req)
	if err != nil || body.Quantity != 2 || body.ProductID != "p1" {
		t.Fatalf("unexpected decode %+v err %v", body, err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"p1","extra":true}`))
	if _, err := Decode[quantityBody](httptest.NewRecorder(), req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown field rejection, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"p1"} {"productId":"p2"}`))
	if _, err := Decode[quantityBody](httptest.NewRecorder(), req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected trailing object rejection, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"quantity":-1}`))
	_, err = Decode[quantityBody](httptest.NewRecorder(), req)
	d := details(t, err)
	if d["productId"] != "is required" || d["quantity"] != "must be greater than or equal to 0" {
		t.Fatalf("unexpected details %v", d)
	}
}

func TestDecodeRejectsBadDocumentIDs(t *testing.T) {
	for _, id := range []string{"a/b", " p1", "p1?x"} {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"`+id+`"}`))
		_, err := Decode[quantityBody](httptest.NewRecorder(), req)
		if d := details(t, err); d["productId"] != "is not a valid id" {
			t.Fatalf("id %q: unexpected details %v", id, d)
		}
	}
}

func TestDecodeRejectsOversizedBody(t *testing.T) {
	big := `{"productId":"` + strings.Repeat("x", maxJSONBodyBytes) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(big))
	_, err := Decode[quantityBody](httptest.NewRecorder(), req)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestDecodeOptional(t *testing.T) {
	type optional struct {
		Text string `json:"text"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(""))
	if _, err := DecodeOptional[optional](httptest.NewRecorder(), req); err != nil {
		t.Fatalf("empty body should be allowed, got %v", err)
	}
	req = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if _, err := Decode[optional](httptest.NewRecorder(), req); err == nil {
		t.Fatal("expected empty body error")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  héllo wörld  ", 5); got != "héllo" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" keep ", 0); got != "keep" {
		t.Fatalf("unexpected %q", got)
	}
}
