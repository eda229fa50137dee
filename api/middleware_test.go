package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/identity"
)

type MockPartnerStore struct {
	mock.Mock
}

func (m *MockPartnerStore) PartnerByKey(ctx context.Context, apiKey string) (*domain.Partner, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Partner), args.Error(1)
}

const testSecret = "test-secret"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return token
}

func authTestRouter(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", middleware, func(c *gin.Context) {
		ident := identityFrom(c)
		if ident == nil {
			c.JSON(http.StatusOK, gin.H{"email": ""})
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": ident.Email})
	})
	return router
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	router := authTestRouter(OptionalAuth(identity.NewVerifier(testSecret)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/probe", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth_ValidTokenAttachesIdentity(t *testing.T) {
	router := authTestRouter(OptionalAuth(identity.NewVerifier(testSecret)))

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{
		"sub":   "auth0|123",
		"email": "ada@example.com",
	}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada@example.com")
}

func TestOptionalAuth_InvalidTokenIsRejected(t *testing.T) {
	router := authTestRouter(OptionalAuth(identity.NewVerifier(testSecret)))

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_MissingTokenIsRejected(t *testing.T) {
	router := authTestRouter(RequireAuth(identity.NewVerifier(testSecret)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_WrongSigningKeyIsRejected(t *testing.T) {
	router := authTestRouter(RequireAuth(identity.NewVerifier("another-secret")))

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{"email": "ada@example.com"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func partnerTestRouter(store PartnerStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/probe", PartnerAuth(store), func(c *gin.Context) {
		partner := partnerFrom(c)
		c.JSON(http.StatusOK, gin.H{"code": partner.Code})
	})
	return router
}

func TestPartnerAuth_ValidCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	assert.NoError(t, err)

	store := &MockPartnerStore{}
	store.On("PartnerByKey", mock.Anything, "key-1").Return(&domain.Partner{
		ID: 1, Code: "HOTEL", Name: "Grand Hotel", APIKey: "key-1", SecretHash: string(hash), Active: true,
	}, nil)

	router := partnerTestRouter(store)
	req := httptest.NewRequest("POST", "/probe", nil)
	req.Header.Set(headerPartnerKey, "key-1")
	req.Header.Set(headerPartnerSecret, "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "HOTEL")
}

func TestPartnerAuth_WrongSecret(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)

	store := &MockPartnerStore{}
	store.On("PartnerByKey", mock.Anything, "key-1").Return(&domain.Partner{
		APIKey: "key-1", SecretHash: string(hash), Active: true,
	}, nil)

	router := partnerTestRouter(store)
	req := httptest.NewRequest("POST", "/probe", nil)
	req.Header.Set(headerPartnerKey, "key-1")
	req.Header.Set(headerPartnerSecret, "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPartnerAuth_UnknownKey(t *testing.T) {
	store := &MockPartnerStore{}
	store.On("PartnerByKey", mock.Anything, "nope").Return(nil, domain.ErrPartnerNotFound)

	router := partnerTestRouter(store)
	req := httptest.NewRequest("POST", "/probe", nil)
	req.Header.Set(headerPartnerKey, "nope")
	req.Header.Set(headerPartnerSecret, "whatever")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPartnerAuth_MissingHeaders(t *testing.T) {
	router := partnerTestRouter(&MockPartnerStore{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
