package controller

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marche241/storefront-gateway/internal/storage"
)

type fakeSigner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSigner) PresignProductImage(ctx context.Context, shopID uint, filename, contentType string) (*storage.PresignedURLResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if !strings.HasPrefix(contentType, "image/") {
		return nil, storage.ErrContentTypeNotAllowed
	}
	return &storage.PresignedURLResponse{
		UploadURL: "https://uploads.example.com/put/" + filename,
		FileURL:   "https://cdn.example.com/" + filename,
		Key:       "boutiques/1/" + filename,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeSigner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSellerController_ListShops(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, "/api/v1/vendeur/boutiques", nil, withBearer(env.api.Token(sellerEmail)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decode(t, w)
	assert.Len(t, response["boutiques"], 1)
	assert.Equal(t, "/admin/chez-awa", response["redirect"])

	w = env.perform(t, http.MethodGet, "/api/v1/vendeur/boutiques", nil, withBearer(env.api.Token(strangerEmail)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/onboarding", decode(t, w)["redirect"])
}

func TestSellerController_ListShops_RejectedToken(t *testing.T) {
	env := setupControllerTest(t)

	w := env.perform(t, http.MethodGet, "/api/v1/vendeur/boutiques", nil, withBearer("not-a-jwt"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadController_GeneratePresignedURL(t *testing.T) {
	env := setupControllerTest(t)
	path := env.sellerPath("/boutiques/%d/images", env.shop.ID)

	w := env.perform(t, http.MethodPost, path, map[string]interface{}{
		"filename":     "pagne.jpg",
		"content_type": "image/jpeg",
	}, withBearer(env.api.Token(sellerEmail)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decode(t, w)
	assert.Contains(t, response["upload_url"], "pagne.jpg")
	assert.NotEmpty(t, response["file_url"])
}

func TestUploadController_GeneratePresignedURL_Rejections(t *testing.T) {
	env := setupControllerTest(t)
	path := env.sellerPath("/boutiques/%d/images", env.shop.ID)

	w := env.perform(t, http.MethodPost, path, map[string]interface{}{
		"filename":     "pagne.jpg",
		"content_type": "image/jpeg",
	}, withBearer(env.api.Token(strangerEmail)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_FORBIDDEN", decode(t, w)["error"])

	w = env.perform(t, http.MethodPost, path, map[string]interface{}{
		"filename":     "catalogue.pdf",
		"content_type": "application/pdf",
	}, withBearer(env.api.Token(sellerEmail)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UPLOAD_INVALID_FILE_TYPE", decode(t, w)["error"])

	w = env.perform(t, http.MethodPost, path, map[string]interface{}{
		"filename": "pagne.jpg",
	}, withBearer(env.api.Token(sellerEmail)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// only the pdf reached the signer
	assert.Equal(t, 1, env.signer.Calls())
}
