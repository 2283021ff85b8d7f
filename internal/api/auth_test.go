package api

import (
	"context"
	"net/http"
	"testing"

	"fintrack/internal/domain"
	"fintrack/internal/middleware"
	"fintrack/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newAuthRouter wires the session endpoints with an in-memory revocation
// list and the given identity verifier
func newAuthRouter(db *gorm.DB, verify IdentityVerifier) (*gin.Engine, *utils.MemoryRevoker) {
	revoker := utils.NewMemoryRevoker()
	r := gin.New()
	r.POST("/user", RegisterHandler(db))
	r.POST("/auth", LoginHandler(db, testConfig))
	r.POST("/auth/google", GoogleLoginHandler(db, testConfig, verify))
	r.POST("/auth/refresh", RefreshHandler(testConfig, revoker))
	r.POST("/logout", LogoutHandler(testConfig, revoker))
	r.GET("/auth-status", AuthStatusHandler(testConfig.JWTSecret))
	authGroup := r.Group("")
	authGroup.Use(middleware.JWTAuthMiddleware(testConfig.JWTSecret))
	authGroup.GET("/user/me", MeHandler(db))
	return r, revoker
}

func TestRegister(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)

	w := doJSON(t, r, http.MethodPost, "/user", "", map[string]any{
		"username": "Carol", "password": "password123", "email": "carol@example.com",
		"first_name": "Carol",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Username is stored lowercased, password is hashed
	var user domain.User
	require.NoError(t, db.Where("username = ?", "carol").First(&user).Error)
	assert.NotEqual(t, "password123", user.Password)
	assert.Equal(t, "carol@example.com", user.Email)

	// Settings were provisioned alongside the user
	var s domain.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&s).Error)
	assert.Equal(t, 0.8, s.OverSpendThreshold)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)

	body := map[string]any{"username": "carol", "password": "password123", "email": "carol@example.com"}
	w := doJSON(t, r, http.MethodPost, "/user", "", body)
	require.Equal(t, http.StatusCreated, w.Code)

	body["email"] = "other@example.com"
	w = doJSON(t, r, http.MethodPost, "/user", "", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Kind string `json:"kind"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, string(domain.ErrDuplicateUsername), resp.Kind)
}

func TestRegisterSeedsMonthlyBudget(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)

	w := doJSON(t, r, http.MethodPost, "/user", "", map[string]any{
		"username": "dave", "password": "password123", "email": "dave@example.com",
		"monthly_budget": 2000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var user domain.User
	require.NoError(t, db.Where("username = ?", "dave").First(&user).Error)
	var s domain.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&s).Error)
	require.NotNil(t, s.MonthlyBudget)
	assert.Equal(t, 2000, *s.MonthlyBudget)
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"short password", map[string]any{"username": "carol", "password": "short", "email": "c@example.com"}},
		{"bad username", map[string]any{"username": "c c!", "password": "password123", "email": "c@example.com"}},
		{"missing email", map[string]any{"username": "carol", "password": "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/user", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLoginIssuesSessionPair(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	user := createTestUser(t, db, "alice", "password123")

	w := doJSON(t, r, http.MethodPost, "/auth", "", map[string]any{
		"username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair utils.TokenPair
	decodeBody(t, w, &pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// Both credentials are bound to the user with the right type claims
	access, err := utils.ParseJWT(pair.AccessToken, testConfig.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, access.UserID)
	assert.Equal(t, utils.TokenTypeAccess, access.TokenType)
	refresh, err := utils.ParseRefreshToken(pair.RefreshToken, testConfig.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refresh.UserID)

	// Session materials are delivered as cookies too
	cookies := w.Result().Cookies()
	names := map[string]bool{}
	for _, cookie := range cookies {
		names[cookie.Name] = true
		assert.True(t, cookie.HttpOnly, "session cookies must be HTTP-only")
	}
	assert.True(t, names[middleware.AccessCookie])
	assert.True(t, names[middleware.RefreshCookie])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	createTestUser(t, db, "alice", "password123")

	w := doJSON(t, r, http.MethodPost, "/auth", "", map[string]any{
		"username": "alice", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth", "", map[string]any{
		"username": "nobody", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	user := createTestUser(t, db, "alice", "password123")

	pair, err := utils.GenerateTokenPair(user.ID, testConfig.JWTSecret)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/auth/refresh", "", map[string]any{"refresh": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Access string `json:"access"`
	}
	decodeBody(t, w, &resp)
	claims, err := utils.ParseJWT(resp.Access, testConfig.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, utils.TokenTypeAccess, claims.TokenType)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	user := createTestUser(t, db, "alice", "password123")

	access := accessTokenFor(t, user.ID)
	w := doJSON(t, r, http.MethodPost, "/auth/refresh", "", map[string]any{"refresh": access})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	user := createTestUser(t, db, "alice", "password123")

	pair, err := utils.GenerateTokenPair(user.ID, testConfig.JWTSecret)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/logout", "", map[string]any{"refresh": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	// The revoked refresh credential can no longer mint access tokens
	w = doJSON(t, r, http.MethodPost, "/auth/refresh", "", map[string]any{"refresh": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthStatus(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	user := createTestUser(t, db, "alice", "password123")

	w := doJSON(t, r, http.MethodGet, "/auth-status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	decodeBody(t, w, &resp)
	assert.False(t, resp.Authenticated)

	w = doJSON(t, r, http.MethodGet, "/auth-status", accessTokenFor(t, user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.True(t, resp.Authenticated)
}

func TestMe(t *testing.T) {
	db := newTestDB(t)
	r, _ := newAuthRouter(db, nil)
	user := createTestUser(t, db, "alice", "password123")

	w := doJSON(t, r, http.MethodGet, "/user/me", accessTokenFor(t, user.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.User
	decodeBody(t, w, &got)
	assert.Equal(t, user.Username, got.Username)
	assert.Equal(t, user.Email, got.Email)

	// The password hash never leaves the server
	assert.NotContains(t, w.Body.String(), user.Password)
}

// fakeVerifier returns a canned identity without calling Google
func fakeVerifier(identity *ExternalIdentity, err error) IdentityVerifier {
	return func(_ context.Context, _, _ string) (*ExternalIdentity, error) {
		return identity, err
	}
}

func TestGoogleLoginCreatesUser(t *testing.T) {
	db := newTestDB(t)
	verify := fakeVerifier(&ExternalIdentity{
		Subject:       "sub-1",
		Email:         "Carol@Example.com",
		EmailVerified: true,
		Issuer:        "https://accounts.google.com",
	}, nil)
	r, _ := newAuthRouter(db, verify)

	w := doJSON(t, r, http.MethodPost, "/auth/google", "", map[string]any{"token": "fake"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// User is keyed by lowercased email, settings are provisioned
	var user domain.User
	require.NoError(t, db.Where("email = ?", "carol@example.com").First(&user).Error)
	var s domain.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&s).Error)

	// Second login reuses the same user
	w = doJSON(t, r, http.MethodPost, "/auth/google", "", map[string]any{"token": "fake"})
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	db.Model(&domain.User{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGoogleLoginRejections(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name     string
		identity *ExternalIdentity
		err      error
		wantKind domain.ErrorKind
	}{
		{
			name:     "invalid token",
			err:      domain.NewError(domain.ErrInvalidToken, "Invalid token"),
			wantKind: domain.ErrInvalidToken,
		},
		{
			name: "issuer not allowed",
			identity: &ExternalIdentity{
				Email: "x@example.com", EmailVerified: true, Issuer: "https://evil.example.com",
			},
			wantKind: domain.ErrIssuerMismatch,
		},
		{
			name: "email unverified",
			identity: &ExternalIdentity{
				Email: "x@example.com", EmailVerified: false, Issuer: "accounts.google.com",
			},
			wantKind: domain.ErrEmailUnverified,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newAuthRouter(db, fakeVerifier(tt.identity, tt.err))
			w := doJSON(t, r, http.MethodPost, "/auth/google", "", map[string]any{"token": "fake"})
			require.Equal(t, http.StatusBadRequest, w.Code)
			var resp struct {
				Kind string `json:"kind"`
			}
			decodeBody(t, w, &resp)
			assert.Equal(t, string(tt.wantKind), resp.Kind)
		})
	}
}
