package file_test

import (
	"context"
	"io"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/internal/file"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	"github.com/cpdo/zoning-tracker/pkg/storage"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockDocuments struct {
	docs []*document.Document
}

func (m *mockDocuments) All(context.Context) ([]*document.Document, error) {
	return m.docs, nil
}

func (m *mockDocuments) GetByID(_ context.Context, id int64) (*document.Document, error) {
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, document.ErrDocumentNotFound
}

// mockFiles mirrors the files of mockDocuments.
type mockFiles struct {
	documents *mockDocuments
}

func (m *mockFiles) GetByID(_ context.Context, id int64) (*documentDatamodel.File, error) {
	for _, d := range m.documents.docs {
		if f, ok := d.FileByID(id); ok {
			return document.FileToDataModel(f), nil
		}
	}
	return nil, file.ErrFileNotFound
}

func (m *mockFiles) Delete(_ context.Context, id int64) error {
	for _, d := range m.documents.docs {
		for i, f := range d.AttachedFiles {
			if f.ID != id {
				continue
			}
			if len(d.AttachedFiles) == 1 {
				return document.ErrLastAttachment
			}
			d.AttachedFiles = append(d.AttachedFiles[:i], d.AttachedFiles[i+1:]...)
			return nil
		}
	}
	return file.ErrFileNotFound
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.types = append(p.types, e.EventType())
	return nil
}

var _ = Describe("File Service", func() {
	var (
		blobs     *storage.LocalStorage
		docs      *mockDocuments
		signer    *storage.SignedURLSigner
		publisher *recordingPublisher
		service   *file.Service
		now       time.Time
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		blobs, err = storage.NewLocalStorage(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		docs = &mockDocuments{docs: []*document.Document{
			docWithFiles(1, "LC Area", "2024-01-01T00:00:00.000Z", "a.pdf", "b.pdf"),
			docWithFiles(2, "Zoning Clearance ", "2024-06-01T00:00:00.000Z", "c.pdf"),
		}}
		for _, d := range docs.docs {
			for _, f := range d.AttachedFiles {
				_, err := blobs.Save(f.StorageKey, []byte("content of "+f.Name))
				Expect(err).NotTo(HaveOccurred())
			}
		}

		now = time.Date(2025, time.January, 15, 8, 0, 0, 0, time.UTC)
		signer = storage.NewSignedURLSigner("0123456789abcdef0123456789abcdef", 15*time.Minute).
			WithClock(func() time.Time { return now })
		publisher = &recordingPublisher{}
		service = file.NewService(&mockFiles{documents: docs}, docs, blobs, signer, publisher, logger.Discard())
		ctx = internal.ContextWithPrincipal(context.Background(), &internal.Principal{ID: 1, Role: internal.RoleUser})
	})

	Describe("List", func() {
		It("should list files newest parent first with years", func() {
			resp, err := service.List(ctx, file.ListQuery{})

			Expect(err).NotTo(HaveOccurred())
			Expect(entryIDs(resp.Files)).To(Equal([]int64{200, 100, 101}))
			Expect(resp.Total).To(Equal(3))
			Expect(resp.Years).To(Equal([]int{2024}))
		})
	})

	Describe("Get", func() {
		It("should include the parent document", func() {
			entry, err := service.Get(ctx, 200)

			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Name).To(Equal("c.pdf"))
			Expect(entry.DocumentTitle).To(Equal("Zoning Clearance "))
		})

		It("should return not found for unknown ids", func() {
			_, err := service.Get(ctx, 999)
			Expect(err).To(MatchError(file.ErrFileNotFound))
		})
	})

	Describe("Delete", func() {
		It("should remove the row and the blob", func() {
			Expect(service.Delete(ctx, 100)).To(Succeed())

			_, err := blobs.Open("documents/1/a.pdf")
			Expect(err).To(MatchError(storage.ErrNotFound))
			Expect(docs.docs[0].AttachedFiles).To(HaveLen(1))
			Expect(publisher.types).To(Equal([]string{events.EventTypeFileDeleted}))
		})

		It("should refuse to remove the last file of a document", func() {
			Expect(service.Delete(ctx, 200)).To(MatchError(document.ErrLastAttachment))

			f, err := blobs.Open("documents/2/c.pdf")
			Expect(err).NotTo(HaveOccurred())
			f.Close()
		})

		It("should refuse viewers", func() {
			viewer := internal.ContextWithPrincipal(context.Background(), &internal.Principal{ID: 2, Role: internal.RoleViewer})
			Expect(service.Delete(viewer, 100)).To(MatchError(file.ErrInsufficientRole))
		})
	})

	Describe("Open", func() {
		It("should open the stored blob and record the download", func() {
			d, err := service.Open(ctx, 101)
			Expect(err).NotTo(HaveOccurred())
			defer d.Content.Close()

			body, err := io.ReadAll(d.Content)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("content of b.pdf"))
			Expect(publisher.types).To(Equal([]string{events.EventTypeFileDownloaded}))
		})

		It("should report placeholders without content as unavailable", func() {
			docs.docs[0].AttachedFiles[0].StorageKey = ""
			_, err := service.Open(ctx, 100)
			Expect(err).To(MatchError(file.ErrFileUnavailable))
		})

		It("should report a missing blob as unavailable", func() {
			Expect(blobs.Delete("documents/1/a.pdf")).To(Succeed())
			_, err := service.Open(ctx, 100)
			Expect(err).To(MatchError(file.ErrFileUnavailable))
		})
	})

	Describe("signed links", func() {
		It("should download through a valid link", func() {
			link, err := service.Link(ctx, 200)
			Expect(err).NotTo(HaveOccurred())
			Expect(link.URL).To(Equal("/api/v1/files/signed/" + link.Token))
			Expect(link.ExpiresAt).To(BeTemporally("~", now.Add(15*time.Minute), time.Second))

			d, err := service.OpenSigned(context.Background(), link.Token)
			Expect(err).NotTo(HaveOccurred())
			d.Content.Close()
			Expect(d.Entry.ID).To(Equal(int64(200)))
		})

		It("should reject an expired link", func() {
			link, err := service.Link(ctx, 200)
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(time.Hour)
			_, err = service.OpenSigned(context.Background(), link.Token)
			Expect(err).To(MatchError(file.ErrLinkExpired))
		})

		It("should reject a tampered link", func() {
			link, err := service.Link(ctx, 200)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.OpenSigned(context.Background(), "100"+link.Token[3:])
			Expect(err).To(MatchError(file.ErrLinkInvalid))
		})

		It("should use the configured base", func() {
			service.WithLinkBase("https://cpdo.example/api/v1/files/signed")
			link, err := service.Link(ctx, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(link.URL).To(HavePrefix("https://cpdo.example/api/v1/files/signed/"))
		})
	})
})
