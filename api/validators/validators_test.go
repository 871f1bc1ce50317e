package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type lineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1,max=1000"`
}

type checkoutRequest struct {
	Items []lineRequest `json:"items" validate:"required,min=1,dive"`
	Notes string        `json:"notes,omitempty" validate:"max=10"`
}

func decode(t *testing.T, body string) (*checkoutRequest, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest checkoutRequest
	err := DecodeJSONBody(req, &dest)
	return &dest, err
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	d, _ := typed.Details().(map[string]string)
	return d
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	dest, err := decode(t, `{"items":[{"product_id":"8b0c8f7e-4b8e-4f0e-9d7c-2a7e5e1c9a11","quantity":2}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dest.Items) != 1 || dest.Items[0].Quantity != 2 {
		t.Fatalf("unexpected decode %+v", dest)
	}
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	_, err := decode(t, `{"items":[{"product_id":"nope","quantity":0}],"notes":"far too long for this"}`)
	d := details(t, err)
	want := map[string]string{
		"items[0].product_id": "must be a valid uuid",
		"items[0].quantity":   "must be at least 1",
		"notes":               "must be at most 10",
	}
	for field, msg := range want {
		if d[field] != msg {
			t.Fatalf("%s: expected %q got %q (all: %v)", field, msg, d[field], d)
		}
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"unknown field":  `{"items":[],"coupon":"FREE"}`,
		"trailing value": `{"items":[{"product_id":"8b0c8f7e-4b8e-4f0e-9d7c-2a7e5e1c9a11","quantity":1}]} {}`,
		"wrong type":     `{"items":"all of them"}`,
		"oversized":      `{"notes":"` + strings.Repeat("x", maxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		if _, err := decode(t, body); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}
