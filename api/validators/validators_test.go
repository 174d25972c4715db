package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
)

type lineBody struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

func TestDecodeJSONBodyValidatesDecimals(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"`+uuid.NewString()+`","quantity":"0"}`))
	var body lineBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"quantity": "must be greater than 0"}, typed.Details())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"`+uuid.NewString()+`","quantity":1.5}`))
	body = lineBody{}
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.True(t, body.Quantity.Equal(decimal.RequireFromString("1.5")))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"extra":true}`))
	var body lineBody
	err := DecodeJSONBody(req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", id.String())
	got, err := PathUUID(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "nope")
	_, err = PathUUID(req, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3", nil)
	got, err := ParseQueryInt(req, "page", 1, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = ParseQueryInt(req, "page_size", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, got)

	req = httptest.NewRequest(http.MethodGet, "/?page=0", nil)
	_, err = ParseQueryInt(req, "page", 1, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeStringCountsRunes(t *testing.T) {
	got := SanitizeString("  ață și mărgele  ", 5)
	assert.Equal(t, "ață ș", got)
	assert.True(t, utf8.ValidString(got))

	// cutting inside a multi-byte character must not leave half of it
	for n := 1; n <= 6; n++ {
		assert.True(t, utf8.ValidString(SanitizeString("îțășâ", n)), "maxLen %d", n)
	}
	assert.Equal(t, "îțășâ", SanitizeString("îțășâ", 0))
	assert.Equal(t, "ac", SanitizeString("a\x00\tc", 10))
	assert.Equal(t, "ață", SanitizeString("ață ", 4))
}

func TestQueryText(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?name=%C8%99nur%C8%99", nil)
	assert.Equal(t, "șnurș", QueryText(req, "name", 10))
	assert.Equal(t, "șn", QueryText(req, "name", 2))
	assert.Equal(t, "", QueryText(req, "category", 10))
}

func TestParseQueryIntReportsField(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page_size=abc", nil)
	_, err := ParseQueryInt(req, "page_size", 25, 1, 100)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]any{"field": "page_size"}, typed.Details())
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
