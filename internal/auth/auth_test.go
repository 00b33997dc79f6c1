package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testSigner() *Signer {
	return NewSigner("schoolattend", "test-key", 15*time.Minute, time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	claims, err := s.Parse(pair.AccessToken, UseAccess)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = s.Parse(pair.RefreshToken, UseAccess)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not pass as access token")

	_, err = NewSigner("other", "test-key", time.Minute, time.Minute).Parse(pair.AccessToken, UseAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSigner("schoolattend", "wrong-key", time.Minute, time.Minute).Parse(pair.AccessToken, UseAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	s := testSigner()
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err := s.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	_, err = testSigner().Parse(pair.AccessToken, UseAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh(t *testing.T) {
	s := testSigner()
	pair, err := s.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	next, err := s.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	_, err = s.Parse(next.AccessToken, UseAccess)
	assert.NoError(t, err)

	_, err = s.Refresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := Admin{User: "admin", PasswordHash: string(hash)}
	s := testSigner()

	_, err = admin.Login(s, "admin", "s3cret")
	assert.NoError(t, err)
	_, err = admin.Login(s, "admin", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = admin.Login(s, "root", "s3cret")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = Admin{User: "admin"}.Login(s, "admin", "")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestBearerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testSigner()
	r := gin.New()
	r.GET("/private", Bearer(s), func(c *gin.Context) {
		c.String(http.StatusOK, Subject(c))
	})

	pair, err := s.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"valid", "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "admin", w.Body.String())
			}
		})
	}
}
