package document_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockService struct {
	docs      map[int64]*document.Document
	lastQuery document.ListQuery
	lastDTO   document.CreateDocumentDTO
	createErr error
}

func (m *mockService) Search(_ context.Context, q document.ListQuery) (*document.ListResponse, error) {
	m.lastQuery = q
	out := []*document.Document{}
	for _, d := range m.docs {
		out = append(out, d)
	}
	return &document.ListResponse{Documents: out, Total: len(out), Years: []int{2025}}, nil
}

func (m *mockService) GetByID(_ context.Context, id int64) (*document.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockService) Create(_ context.Context, dto document.CreateDocumentDTO) (*document.Document, error) {
	m.lastDTO = dto
	if m.createErr != nil {
		return nil, m.createErr
	}
	d := &document.Document{ID: 10, Title: dto.Title, ZoningApplicationNumber: "LC-2025-0001"}
	m.docs[d.ID] = d
	return d, nil
}

func (m *mockService) Update(_ context.Context, id int64, dto document.UpdateDocumentDTO) (*document.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}
	d.Title = dto.Title
	return d, nil
}

func (m *mockService) Delete(_ context.Context, id int64) error {
	if _, ok := m.docs[id]; !ok {
		return document.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockService) Export(_ context.Context, q document.ListQuery, format string) (*document.ExportResult, error) {
	m.lastQuery = q
	if format == "docx" {
		return nil, internal.NewValidationFieldError("format", "unsupported export format", internal.ErrCodeValidationFailed)
	}
	return &document.ExportResult{Filename: "documents-all-20250115.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("a,b\n")}, nil
}

var _ = Describe("Document Handler", func() {
	var (
		service *mockService
		router  chi.Router
		user    *internal.Principal
	)

	BeforeEach(func() {
		service = &mockService{docs: map[int64]*document.Document{
			1: {ID: 1, Title: "LC Area"},
		}}
		handler := document.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
		user = &internal.Principal{ID: 3, Role: internal.RoleUser}

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if user != nil {
					r = r.WithContext(internal.ContextWithPrincipal(r.Context(), user))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/documents", handler.ListDocuments)
		router.Get("/documents/export", handler.ExportDocuments)
		router.Post("/documents", handler.CreateDocument)
		router.Get("/documents/{id}", handler.GetDocument)
		router.Put("/documents/{id}", handler.UpdateDocument)
		router.Delete("/documents/{id}", handler.DeleteDocument)
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

	It("should pass query and year to the search", func() {
		w := serve(http.MethodGet, "/documents?q=%20rizal%20&year=2024", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(service.lastQuery.Query).To(Equal("rizal"))
		Expect(service.lastQuery.Year).NotTo(BeNil())
		Expect(*service.lastQuery.Year).To(Equal(2024))

		var resp document.ListResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Total).To(Equal(1))
	})

	It("should treat year=all as no year filter", func() {
		serve(http.MethodGet, "/documents?year=all", nil)
		Expect(service.lastQuery.Year).To(BeNil())
	})

	It("should return a document by id", func() {
		w := serve(http.MethodGet, "/documents/1", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should return 404 for an unknown document", func() {
		w := serve(http.MethodGet, "/documents/77", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject a malformed id", func() {
		w := serve(http.MethodGet, "/documents/abc", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should create a document with 201", func() {
		w := serve(http.MethodPost, "/documents", map[string]interface{}{"title": "LC Area"})

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(service.lastDTO.Title).To(Equal("LC Area"))
	})

	It("should map a missing attachment to 400", func() {
		service.createErr = document.ErrAttachmentMissing
		w := serve(http.MethodPost, "/documents", map[string]interface{}{"title": "LC Area"})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeAttachmentMissing)))
	})

	It("should reject a broken body", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBufferString("{")))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should require an authenticated caller to create", func() {
		user = nil
		w := serve(http.MethodPost, "/documents", map[string]interface{}{"title": "LC Area"})
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should update a document", func() {
		w := serve(http.MethodPut, "/documents/1", map[string]interface{}{"title": "Zoning Clearance "})
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(service.docs[1].Title).To(Equal("Zoning Clearance "))
	})

	It("should delete a document with 204", func() {
		w := serve(http.MethodDelete, "/documents/1", nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(service.docs).NotTo(HaveKey(int64(1)))
	})

	It("should send the export as an attachment", func() {
		w := serve(http.MethodGet, "/documents/export?format=CSV", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
		Expect(w.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="documents-all-20250115.csv"`))
		Expect(w.Body.String()).To(Equal("a,b\n"))
	})

	It("should reject an unknown export format", func() {
		w := serve(http.MethodGet, "/documents/export?format=docx", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
