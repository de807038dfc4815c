package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/pkg/token"
)

func TestSessionMiddleware(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	acmeToken, _, err := issuer.Generate("acme_1234", "ACME", "u1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	otherToken, _, _ := issuer.Generate("demo_0001", "DEMO", "u2", domain.RoleAdmin)

	testCases := []struct {
		name           string
		required       bool
		authorization  string
		expectedStatus int
		expectClaims   bool
	}{
		{name: "optional without token", required: false, expectedStatus: http.StatusOK},
		{name: "required without token", required: true, expectedStatus: http.StatusUnauthorized},
		{name: "valid token", required: true, authorization: "Bearer " + acmeToken, expectedStatus: http.StatusOK, expectClaims: true},
		{name: "lowercase scheme", required: true, authorization: "bearer " + acmeToken, expectedStatus: http.StatusOK, expectClaims: true},
		{name: "token for another tenant", required: true, authorization: "Bearer " + otherToken, expectedStatus: http.StatusUnauthorized},
		{name: "garbage token even when optional", required: false, authorization: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", required: true, authorization: "Basic abc", expectedStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hasClaims bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, hasClaims = ClaimsFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tc.authorization != "" {
				req.Header.Set("Authorization", tc.authorization)
			}
			req = req.WithContext(WithScope(req.Context(), domain.Scope{APIKey: "acme_1234", CompanyID: "ACME"}))

			rr := httptest.NewRecorder()
			Session(issuer, tc.required)(next).ServeHTTP(rr, req)

			if rr.Code != tc.expectedStatus {
				t.Fatalf("expected status %d, got %d", tc.expectedStatus, rr.Code)
			}
			if hasClaims != tc.expectClaims {
				t.Errorf("expected claims in context: %v, got %v", tc.expectClaims, hasClaims)
			}
		})
	}
}
