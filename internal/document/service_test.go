package document_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/internal/sequence"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockRepository struct {
	docs       map[int64]*documentDatamodel.Document
	nextID     int64
	nextFileID int64
	shouldFail bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{docs: make(map[int64]*documentDatamodel.Document)}
}

func (m *mockRepository) SetShouldFail(fail bool) { m.shouldFail = fail }

func (m *mockRepository) assignFileIDs(files []documentDatamodel.File) {
	for i := range files {
		m.nextFileID++
		files[i].ID = m.nextFileID
	}
}

func (m *mockRepository) Create(_ context.Context, doc *documentDatamodel.Document, attach document.AttachFunc) error {
	id := m.nextID + 1
	files, err := attach(id)
	if err != nil {
		return err
	}
	if m.shouldFail {
		return errors.New("database error")
	}
	if len(files) == 0 {
		return document.ErrAttachmentMissing
	}
	m.nextID = id
	m.assignFileIDs(files)
	doc.ID = id
	doc.Files = files
	stored := *doc
	m.docs[id] = &stored
	return nil
}

func (m *mockRepository) Update(_ context.Context, doc *documentDatamodel.Document, removed []int64, attach document.AttachFunc) error {
	if m.shouldFail {
		return errors.New("database error")
	}
	existing, ok := m.docs[doc.ID]
	if !ok {
		return document.ErrDocumentNotFound
	}
	drop := make(map[int64]bool)
	for _, id := range removed {
		drop[id] = true
	}
	var kept []documentDatamodel.File
	for _, f := range existing.Files {
		if !drop[f.ID] {
			kept = append(kept, f)
		}
	}
	added, err := attach(doc.ID)
	if err != nil {
		return err
	}
	m.assignFileIDs(added)
	kept = append(kept, added...)
	if len(kept) == 0 {
		return document.ErrLastAttachment
	}
	stored := *doc
	stored.DateSort = existing.DateSort
	stored.DateAdded = existing.DateAdded
	stored.CreatedBy = existing.CreatedBy
	stored.Files = kept
	m.docs[doc.ID] = &stored
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id int64) error {
	if _, ok := m.docs[id]; !ok {
		return document.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id int64) (*documentDatamodel.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}
	c := *d
	c.Files = append([]documentDatamodel.File(nil), d.Files...)
	return &c, nil
}

func (m *mockRepository) List(_ context.Context) ([]*documentDatamodel.Document, error) {
	if m.shouldFail {
		return nil, errors.New("database error")
	}
	out := make([]*documentDatamodel.Document, 0, len(m.docs))
	for _, d := range m.docs {
		c := *d
		out = append(out, &c)
	}
	// map order is random; the service must sort
	return out, nil
}

type memoryCounters struct {
	values map[string]int64
}

func (m *memoryCounters) Increment(_ context.Context, prefix string, year int) (int64, error) {
	k := fmt.Sprintf("%s-%d", prefix, year)
	m.values[k]++
	return m.values[k], nil
}

func (m *memoryCounters) Current(_ context.Context, prefix string, year int) (int64, error) {
	return m.values[fmt.Sprintf("%s-%d", prefix, year)], nil
}

type mockBlobStore struct {
	blobs      map[string][]byte
	shouldFail bool
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Save(key string, data []byte) (string, error) {
	if m.shouldFail {
		return "", errors.New("disk full")
	}
	m.blobs[key] = data
	return key, nil
}

func (m *mockBlobStore) Delete(key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *mockBlobStore) DeletePrefix(prefix string) error {
	for k := range m.blobs {
		if strings.HasPrefix(k, prefix+"/") {
			delete(m.blobs, k)
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func upload(name, content string) document.FileUploadDTO {
	return document.FileUploadDTO{
		Name:     name,
		MimeType: "application/pdf",
		Content:  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

func validFields(title string) document.FieldsDTO {
	return document.FieldsDTO{
		Title:             title,
		ProjectType:       "Duplex",
		Zoning:            "Low Density Residential Zone (R-1)",
		DateOfApplication: "2025-01-01",
		ReceivedBy:        "Clerk One",
		ApplicantName:     "Maria Santos",
		RoutedTo:          []string{"planner@cpdo.gov.ph"},
		Barangay:          "Poblacion",
		Purok:             "Purok 2",
		OIC:               "Officer Reyes",
	}
}

func editorContext() context.Context {
	return internal.ContextWithPrincipal(context.Background(), &internal.Principal{ID: 7, Username: "editor", Role: internal.RoleUser})
}

var _ = Describe("Document Service", func() {
	var (
		repo      *mockRepository
		blobs     *mockBlobStore
		publisher *recordingPublisher
		service   *document.Service
		now       time.Time
		ctx       context.Context
	)

	BeforeEach(func() {
		repo = newMockRepository()
		blobs = newMockBlobStore()
		publisher = &recordingPublisher{}
		now = time.Date(2025, time.January, 15, 2, 30, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		numbers := sequence.NewGenerator(&memoryCounters{values: map[string]int64{}}, logger.Discard()).WithClock(clock)
		service = document.NewService(repo, numbers, blobs, publisher, logger.Discard()).WithClock(clock)
		ctx = editorContext()
	})

	Describe("Create", func() {
		Context("when the document has no attached files", func() {
			It("should reject it and leave the repository unchanged", func() {
				// Given
				dto := document.CreateDocumentDTO{FieldsDTO: validFields("LC Area")}

				// When
				doc, err := service.Create(ctx, dto)

				// Then
				Expect(doc).To(BeNil())
				Expect(err).To(MatchError(document.ErrAttachmentMissing))
				Expect(repo.docs).To(BeEmpty())
				Expect(blobs.blobs).To(BeEmpty())
				Expect(publisher.Types()).To(BeEmpty())
			})
		})

		Context("when the document is valid", func() {
			It("should derive the number, due date and dates", func() {
				dto := document.CreateDocumentDTO{
					FieldsDTO:     validFields("Zoning Clearance "),
					AttachedFiles: []document.FileUploadDTO{upload("plan.pdf", "%PDF-1.4")},
				}

				doc, err := service.Create(ctx, dto)

				Expect(err).NotTo(HaveOccurred())
				Expect(doc.ID).To(BeNumerically(">", 0))
				Expect(doc.ZoningApplicationNumber).To(Equal("LC-2025-0001"))
				Expect(doc.DueDate).To(Equal("2025-01-17"))
				Expect(doc.DateAdded).To(Equal("January 15, 2025"))
				Expect(doc.DateSort).To(Equal("2025-01-15T02:30:00.000Z"))
				Expect(doc.Location).To(Equal("Poblacion, Purok 2"))
				Expect(doc.CreatedBy).To(Equal(int64(7)))
				Expect(doc.AttachedFiles).To(HaveLen(1))
				Expect(doc.AttachedFiles[0].Available).To(BeTrue())
				Expect(doc.AttachedFiles[0].Size).To(Equal(int64(8)))
				Expect(blobs.blobs).To(HaveLen(1))
				Expect(publisher.Types()).To(Equal([]string{events.EventTypeDocumentCreated}))
			})

			It("should use the XX prefix for other titles", func() {
				dto := document.CreateDocumentDTO{
					FieldsDTO:     validFields("Miscellaneous"),
					AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
				}

				doc, err := service.Create(ctx, dto)
				Expect(err).NotTo(HaveOccurred())
				Expect(doc.ZoningApplicationNumber).To(HavePrefix("XX-2025-"))
			})

			It("should keep client supplied number and due date", func() {
				fields := validFields("LC Area")
				fields.ZoningApplicationNumber = "LC-2024-0999"
				fields.DueDate = "January 31, 2025"

				doc, err := service.Create(ctx, document.CreateDocumentDTO{
					FieldsDTO:     fields,
					AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(doc.ZoningApplicationNumber).To(Equal("LC-2024-0999"))
				Expect(doc.DueDate).To(Equal("2025-01-31"))
			})

			It("should strip markup from free text", func() {
				fields := validFields("LC Area")
				fields.ApplicantName = "<b>Maria</b> & Sons"

				doc, err := service.Create(ctx, document.CreateDocumentDTO{
					FieldsDTO:     fields,
					AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(doc.ApplicantName).To(Equal("Maria & Sons"))
			})
		})

		It("should reject missing routed_to", func() {
			fields := validFields("LC Area")
			fields.RoutedTo = nil
			_, err := service.Create(ctx, document.CreateDocumentDTO{
				FieldsDTO:     fields,
				AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(repo.docs).To(BeEmpty())
		})

		It("should reject content that is not base64", func() {
			_, err := service.Create(ctx, document.CreateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{{Name: "a.pdf", Content: "%%%"}},
			})
			Expect(err).To(HaveOccurred())
			Expect(repo.docs).To(BeEmpty())
		})

		It("should remove stored blobs when persistence fails", func() {
			repo.SetShouldFail(true)
			_, err := service.Create(ctx, document.CreateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
			})
			Expect(err).To(HaveOccurred())
			Expect(blobs.blobs).To(BeEmpty())
		})

		It("should refuse viewers", func() {
			viewer := internal.ContextWithPrincipal(context.Background(), &internal.Principal{ID: 9, Role: internal.RoleViewer})
			_, err := service.Create(viewer, document.CreateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
			})
			Expect(err).To(MatchError(document.ErrInsufficientRole))
		})
	})

	Describe("Update", func() {
		var created *document.Document

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, document.CreateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a"), upload("b.pdf", "b")},
			})
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(48 * time.Hour)
		})

		It("should preserve date_sort, date_added and the number", func() {
			fields := validFields("LC Area")
			fields.ApplicantName = "New Applicant"

			updated, err := service.Update(ctx, created.ID, document.UpdateDocumentDTO{FieldsDTO: fields})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.ApplicantName).To(Equal("New Applicant"))
			Expect(updated.DateSort).To(Equal(created.DateSort))
			Expect(updated.DateAdded).To(Equal(created.DateAdded))
			Expect(updated.ZoningApplicationNumber).To(Equal(created.ZoningApplicationNumber))
			Expect(updated.DueDate).To(Equal(created.DueDate))
		})

		It("should recompute the due date when the application date changes", func() {
			fields := validFields("LC Area")
			fields.DateOfApplication = "2025-01-03"

			updated, err := service.Update(ctx, created.ID, document.UpdateDocumentDTO{FieldsDTO: fields})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.DueDate).To(Equal("2025-01-21"))
		})

		It("should add and remove files", func() {
			dto := document.UpdateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{upload("c.pdf", "c")},
				RemoveFileIDs: []int64{created.AttachedFiles[0].ID},
			}

			updated, err := service.Update(ctx, created.ID, dto)

			Expect(err).NotTo(HaveOccurred())
			names := []string{}
			for _, f := range updated.AttachedFiles {
				names = append(names, f.Name)
			}
			sort.Strings(names)
			Expect(names).To(Equal([]string{"b.pdf", "c.pdf"}))
			Expect(blobs.blobs).To(HaveLen(2))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeDocumentUpdated))
		})

		It("should refuse to remove the last file", func() {
			dto := document.UpdateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				RemoveFileIDs: []int64{created.AttachedFiles[0].ID, created.AttachedFiles[1].ID},
			}

			_, err := service.Update(ctx, created.ID, dto)

			Expect(err).To(MatchError(document.ErrLastAttachment))
			Expect(repo.docs[created.ID].Files).To(HaveLen(2))
		})

		It("should reject files of another document", func() {
			dto := document.UpdateDocumentDTO{FieldsDTO: validFields("LC Area"), RemoveFileIDs: []int64{999}}
			_, err := service.Update(ctx, created.ID, dto)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeFileNotFound))
		})

		It("should report unknown documents", func() {
			_, err := service.Update(ctx, 404, document.UpdateDocumentDTO{FieldsDTO: validFields("LC Area")})
			Expect(err).To(MatchError(document.ErrDocumentNotFound))
		})
	})

	Describe("Delete", func() {
		It("should remove the document and its blobs", func() {
			created, err := service.Create(ctx, document.CreateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(ctx, created.ID)).To(Succeed())

			Expect(repo.docs).To(BeEmpty())
			Expect(blobs.blobs).To(BeEmpty())
			Expect(publisher.Types()).To(ContainElement(events.EventTypeDocumentDeleted))
		})

		It("should report unknown documents", func() {
			Expect(service.Delete(ctx, 1)).To(MatchError(document.ErrDocumentNotFound))
		})
	})

	Describe("Search", func() {
		It("should return documents newest first with the available years", func() {
			for i, day := range []int{3, 1, 2} {
				now = time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
				_, err := service.Create(ctx, document.CreateDocumentDTO{
					FieldsDTO:     validFields(fmt.Sprintf("LC Area %d", i)),
					AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
				})
				Expect(err).NotTo(HaveOccurred())
			}

			resp, err := service.Search(ctx, document.ListQuery{})

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Total).To(Equal(3))
			Expect(resp.Documents[0].DateSort).To(HavePrefix("2024-03-03"))
			Expect(resp.Documents[2].DateSort).To(HavePrefix("2024-03-01"))
			Expect(resp.Years).To(Equal([]int{2024}))
		})

		It("should surface repository errors", func() {
			repo.SetShouldFail(true)
			_, err := service.Search(ctx, document.ListQuery{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Export", func() {
		It("should render csv by default", func() {
			_, err := service.Create(ctx, document.CreateDocumentDTO{
				FieldsDTO:     validFields("LC Area"),
				AttachedFiles: []document.FileUploadDTO{upload("a.pdf", "a")},
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := service.Export(ctx, document.ListQuery{}, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ContentType).To(HavePrefix("text/csv"))
			Expect(result.Filename).To(Equal("documents-all-20250115.csv"))
			Expect(string(result.Body)).To(ContainSubstring("LC-2025-0001"))
		})

		It("should reject unknown formats", func() {
			_, err := service.Export(ctx, document.ListQuery{}, "docx")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})
})
