package user_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/cpdo/zoning-tracker/internal"
	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/cpdo/zoning-tracker/internal/user"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User Handler", func() {
	var (
		repo   *mockRepository
		router chi.Router
		caller *userDatamodel.User
	)

	BeforeEach(func() {
		repo = newMockRepository()
		caller = repo.seed("admin", "admin@cpdo.gov.ph", "adminpass", internal.RoleAdmin)
		service := user.NewService(repo, 4, nil, logger.Discard())
		handler := user.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if caller != nil {
					r = r.WithContext(withPrincipal(r.Context(), caller))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/users", handler.ListUsers)
		router.Post("/users", handler.CreateUser)
		router.Get("/users/directory", handler.GetDirectory)
		router.Get("/users/{id}", handler.GetUser)
		router.Put("/users/{id}", handler.UpdateUser)
		router.Delete("/users/{id}", handler.DeleteUser)
		router.Put("/settings/profile", handler.UpdateProfile)
		router.Put("/settings/password", handler.ChangePassword)
		router.Post("/settings/password/strength", handler.CheckPasswordStrength)
	})

	serve := func(method, target string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, target, &buf))
		return w
	}

	It("should list users without exposing password hashes", func() {
		w := serve(http.MethodGet, "/users", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).NotTo(ContainSubstring("password"))
		var resp user.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Total).To(Equal(1))
	})

	It("should forbid the list to non-admins", func() {
		caller = repo.seed("viewer", "viewer@cpdo.gov.ph", "secret1", internal.RoleViewer)
		w := serve(http.MethodGet, "/users", nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("should create a user with 201", func() {
		w := serve(http.MethodPost, "/users", map[string]string{
			"first_name":       "Juan",
			"last_name":        "Dela Cruz",
			"username":         "juan",
			"email":            "juan@cpdo.gov.ph",
			"password":         "secret1",
			"confirm_password": "secret1",
		})
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(repo.users).To(HaveLen(2))
	})

	It("should return 409 for a duplicate username", func() {
		w := serve(http.MethodPost, "/users", map[string]string{
			"first_name":       "Other",
			"last_name":        "Admin",
			"username":         "Admin",
			"email":            "other@cpdo.gov.ph",
			"password":         "secret1",
			"confirm_password": "secret1",
		})
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeUsernameTaken)))
	})

	It("should return 404 for an unknown user", func() {
		w := serve(http.MethodGet, "/users/42", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a malformed id", func() {
		w := serve(http.MethodDelete, "/users/x", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should refuse self deletion with 400", func() {
		w := serve(http.MethodDelete, "/users/1", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeCannotDeleteSelf)))
	})

	It("should delete another user with 204", func() {
		other := repo.seed("other", "other@cpdo.gov.ph", "secret1", internal.RoleUser)
		w := serve(http.MethodDelete, "/users/2", nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(repo.users).NotTo(HaveKey(other.ID))
	})

	It("should serve the directory to viewers", func() {
		caller = repo.seed("viewer", "viewer@cpdo.gov.ph", "secret1", internal.RoleViewer)
		w := serve(http.MethodGet, "/users/directory", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp user.DirectoryResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Users).To(HaveLen(2))
	})

	It("should change the password with 204", func() {
		w := serve(http.MethodPut, "/settings/password", map[string]string{
			"current_password": "adminpass",
			"new_password":     "newpass1",
			"confirm_password": "newpass1",
		})
		Expect(w.Code).To(Equal(http.StatusNoContent))
	})

	It("should return 400 for a wrong current password", func() {
		w := serve(http.MethodPut, "/settings/password", map[string]string{
			"current_password": "wrong",
			"new_password":     "newpass1",
			"confirm_password": "newpass1",
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeWrongPassword)))
	})

	It("should require a caller for profile changes", func() {
		caller = nil
		w := serve(http.MethodPut, "/settings/profile", map[string]string{"username": "chief", "email": "a@b.co"})
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should score a password", func() {
		w := serve(http.MethodPost, "/settings/password/strength", map[string]string{"password": "Abcde1!"})

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp user.StrengthResult
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Label).To(Equal(user.StrengthStrong))
	})
})
