package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Auth Handler", func() {
	var (
		router  chi.Router
		service *Service
	)

	ginkgo.BeforeEach(func() {
		tokenGen := NewJWTTokenGenerator("handler-access-secret", "handler-refresh-secret", time.Hour, 24*time.Hour)
		service = NewService(newMockUserRepository(), tokenGen, nil, logger.Discard())
		handler := NewHandler(transport.NewBaseHandler(logger.Discard()), service)
		rbac := NewRBACAuthorization(logger.Discard())
		limiter := NewLoginRateLimiter(0.001, 2, logger.Discard())

		ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

		router = chi.NewRouter()
		router.With(limiter.Middleware).Post("/auth/login", handler.Login)
		router.Post("/auth/refresh", handler.RefreshToken)
		router.Post("/auth/logout", handler.Logout)
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Get("/auth/me", handler.Me)
			r.With(rbac.RequireAdmin()).Get("/admin-only", ok)
			r.With(rbac.RequireEditor()).Get("/editor-only", ok)
		})
	})

	post := func(target string, body interface{}, remote string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
		req := httptest.NewRequest(http.MethodPost, target, &buf)
		if remote != "" {
			req.RemoteAddr = remote
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	get := func(target, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	login := func(username string) LoginResponse {
		w := post("/auth/login", LoginDTO{Username: username, Password: "correct_password"}, "10.0.0."+username+":1234")
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		var resp LoginResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.It("should log in and serve the profile", func() {
		resp := login("planner")

		w := get("/auth/me", resp.AccessToken)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(`"username":"planner"`))
		gomega.Expect(w.Body.String()).ToNot(gomega.ContainSubstring("password"))
	})

	ginkgo.It("should answer 401 with INVALID_CREDENTIALS on a bad password", func() {
		w := post("/auth/login", LoginDTO{Username: "planner", Password: "nope"}, "")
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeInvalidCredentials)))
	})

	ginkgo.It("should rate limit repeated logins from one address", func() {
		body := LoginDTO{Username: "planner", Password: "nope"}
		gomega.Expect(post("/auth/login", body, "192.0.2.1:1000").Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(post("/auth/login", body, "192.0.2.1:1001").Code).To(gomega.Equal(http.StatusUnauthorized))

		w := post("/auth/login", body, "192.0.2.1:1002")
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusTooManyRequests))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring(string(internal.ErrCodeRateLimited)))

		// another client is unaffected
		gomega.Expect(post("/auth/login", body, "192.0.2.2:1000").Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should ignore forwarded headers when keying the login limit", func() {
		body := LoginDTO{Username: "planner", Password: "nope"}
		limited := 0
		for i := 0; i < 20; i++ {
			var buf bytes.Buffer
			gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
			req := httptest.NewRequest(http.MethodPost, "/auth/login", &buf)
			req.RemoteAddr = "198.51.100.9:4000"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.%d.%d", i/250, i%250))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code == http.StatusTooManyRequests {
				limited++
			}
		}
		gomega.Expect(limited).To(gomega.Equal(18))
	})

	ginkgo.It("should refresh a token pair", func() {
		resp := login("viewer")
		w := post("/auth/refresh", RefreshTokenDTO{RefreshToken: resp.RefreshToken}, "")
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("should reject an empty refresh token with 400", func() {
		w := post("/auth/refresh", RefreshTokenDTO{}, "")
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should log out with 204 only for a valid token", func() {
		resp := login("planner")

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should require a bearer token on protected routes", func() {
		gomega.Expect(get("/auth/me", "").Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(get("/auth/me", "garbage").Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.DescribeTable("role gates",
		func(username, target string, status int) {
			resp := login(username)
			gomega.Expect(get(target, resp.AccessToken).Code).To(gomega.Equal(status))
		},
		ginkgo.Entry("admin on admin route", "admin", "/admin-only", http.StatusOK),
		ginkgo.Entry("user on admin route", "planner", "/admin-only", http.StatusForbidden),
		ginkgo.Entry("user on editor route", "planner", "/editor-only", http.StatusOK),
		ginkgo.Entry("viewer on editor route", "viewer", "/editor-only", http.StatusForbidden),
	)
})

var _ = ginkgo.Describe("LoginRateLimiter", func() {
	ginkgo.It("should keep an exhausted client limited when new addresses flood in", func() {
		// Given a client that has used its whole burst
		limiter := NewLoginRateLimiter(0.001, 1, logger.Discard())
		limiter.maxClients = 3
		gomega.Expect(limiter.Allow("203.0.113.1")).To(gomega.BeTrue())
		gomega.Expect(limiter.Allow("203.0.113.1")).To(gomega.BeFalse())

		// When many unseen addresses arrive
		for i := 0; i < 50; i++ {
			limiter.Allow(fmt.Sprintf("10.0.0.%d", i))
		}

		// Then the original bucket survives
		gomega.Expect(limiter.Allow("203.0.113.1")).To(gomega.BeFalse())
		gomega.Expect(len(limiter.limiters)).To(gomega.BeNumerically("<=", 3))
	})

	ginkgo.It("should evict buckets that have fully refilled", func() {
		limiter := NewLoginRateLimiter(1000, 1, logger.Discard())
		limiter.maxClients = 2
		gomega.Expect(limiter.Allow("a")).To(gomega.BeTrue())
		gomega.Expect(limiter.Allow("b")).To(gomega.BeTrue())
		time.Sleep(5 * time.Millisecond)

		gomega.Expect(limiter.Allow("c")).To(gomega.BeTrue())
		gomega.Expect(limiter.limiters).To(gomega.HaveKey("c"))
	})
})
