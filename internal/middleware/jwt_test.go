package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "marketplace-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newJWTApp(opts JWTOptions) *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(opts))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   c.Locals(LocalUserID),
			"user_role": c.Locals(LocalUserRole),
			"seller_id": c.Locals(LocalSellerID),
		})
	})
	return app
}

func callWithToken(t *testing.T, app *fiber.App, header string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedPopulatesActor(t *testing.T) {
	app := newJWTApp(JWTOptions{Secret: testSecret, Issuer: "marketplace"})
	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       "42",
		"role":      "Seller",
		"seller_id": float64(7),
		"iss":       "marketplace",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	resp := callWithToken(t, app, "bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejects(t *testing.T) {
	app := newJWTApp(JWTOptions{Secret: testSecret, Issuer: "marketplace"})

	require.Equal(t, fiber.StatusUnauthorized, callWithToken(t, app, "").StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, callWithToken(t, app, "Token abc").StatusCode)

	expired := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "iss": "marketplace", "exp": time.Now().Add(-time.Hour).Unix()})
	require.Equal(t, fiber.StatusUnauthorized, callWithToken(t, app, "Bearer "+expired).StatusCode)

	wrongIssuer := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "iss": "elsewhere"})
	require.Equal(t, fiber.StatusUnauthorized, callWithToken(t, app, "Bearer "+wrongIssuer).StatusCode)

	noSubject := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"role": "buyer", "iss": "marketplace"})
	require.Equal(t, fiber.StatusUnauthorized, callWithToken(t, app, "Bearer "+noSubject).StatusCode)
}

func TestExtractClaims(t *testing.T) {
	claims := jwt.MapClaims{"user_id": "12", "roles": []interface{}{" ", "Assessor"}, "seller_id": "x"}

	id := extractIDFromClaims(claims, "sub", "user_id")
	require.NotNil(t, id)
	require.Equal(t, uint(12), *id)
	require.Equal(t, "assessor", extractUserRoleFromClaims(claims))
	require.Nil(t, extractIDFromClaims(claims, "seller_id"))
}
