package document_test

import (
	"fmt"

	"github.com/cpdo/zoning-tracker/internal/document"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Filter", func() {
	var docs []*document.Document

	BeforeEach(func() {
		docs = []*document.Document{
			{ID: 1, Title: "LC Area", ApplicantName: "Maria Santos", DateSort: "2024-02-10T00:00:00.000Z"},
			{ID: 2, Title: "Zoning Clearance ", ApplicantName: "Jose Rizal", DateSort: "2023-11-01T00:00:00.000Z"},
			{ID: 3, Title: "Development Permit", ApplicantName: "Ana Cruz", DateSort: "2024-07-04T00:00:00.000Z"},
			{ID: 4, Title: "LC Subdivision", ApplicantName: "Pedro Reyes", DateSort: "2023-05-20T00:00:00.000Z"},
			{ID: 5, Title: "LC Buildin", ApplicantName: "Luz Garcia", DateSort: "2024-12-31T00:00:00.000Z",
				AttachedFiles: []document.AttachedFile{{Name: "site-plan.pdf"}}},
		}
	})

	It("should keep exactly the documents of the selected year, newest first", func() {
		result := document.Filter(docs, "", intPtr(2024))
		Expect(ids(result)).To(Equal([]int64{5, 3, 1}))
	})

	It("should return everything sorted when no filter applies", func() {
		Expect(ids(document.Filter(docs, "", nil))).To(Equal([]int64{5, 3, 1, 2, 4}))
	})

	It("should match any field case-insensitively", func() {
		Expect(ids(document.Filter(docs, "rizal", nil))).To(Equal([]int64{2}))
		Expect(ids(document.Filter(docs, "SITE-PLAN", nil))).To(Equal([]int64{5}))
		Expect(ids(document.Filter(docs, "lc ", nil))).To(Equal([]int64{5, 1, 4}))
	})

	It("should combine query and year", func() {
		Expect(ids(document.Filter(docs, "lc", intPtr(2023)))).To(Equal([]int64{4}))
	})

	It("should never match undated documents to a year", func() {
		undated := append(docs, &document.Document{ID: 6, Title: "LC Area", DateSort: "nope"})
		Expect(ids(document.Filter(undated, "", intPtr(1970)))).To(BeEmpty())
	})
})

var _ = Describe("GroupByMonth", func() {
	It("should bucket by month label, newest first", func() {
		docs := []*document.Document{
			{ID: 1, DateSort: "2024-02-10T00:00:00.000Z"},
			{ID: 2, DateSort: "2024-02-11T00:00:00.000Z"},
			{ID: 3, DateSort: "2024-07-04T00:00:00.000Z"},
			{ID: 4, DateSort: "2023-07-04T00:00:00.000Z"},
			{ID: 5, DateSort: "invalid"},
		}

		buckets := document.GroupByMonth(docs, nil)

		Expect(buckets).To(HaveLen(3))
		Expect(buckets[0].Label).To(Equal("July 2024"))
		Expect(buckets[1].Label).To(Equal("February 2024"))
		Expect(buckets[1].Count).To(Equal(2))
		Expect(ids(buckets[1].Documents)).To(Equal([]int64{2, 1}))
		Expect(buckets[2].Label).To(Equal("July 2023"))
	})

	It("should cap at twelve buckets without a year", func() {
		var docs []*document.Document
		for i := 0; i < 18; i++ {
			year, month := 2023+i/12, i%12+1
			docs = append(docs, &document.Document{ID: int64(i + 1), DateSort: fmt.Sprintf("%d-%02d-15T00:00:00.000Z", year, month)})
		}

		buckets := document.GroupByMonth(docs, nil)
		Expect(buckets).To(HaveLen(12))
		Expect(buckets[0].Label).To(Equal("June 2024"))
		Expect(buckets[11].Label).To(Equal("July 2023"))
	})

	It("should keep every month of the selected year", func() {
		var docs []*document.Document
		for m := 1; m <= 12; m++ {
			docs = append(docs, &document.Document{ID: int64(m), DateSort: fmt.Sprintf("2024-%02d-01T00:00:00.000Z", m)})
		}
		docs = append(docs, &document.Document{ID: 99, DateSort: "2023-12-01T00:00:00.000Z"})

		buckets := document.GroupByMonth(docs, intPtr(2024))
		Expect(buckets).To(HaveLen(12))
		Expect(buckets[0].Label).To(Equal("December 2024"))
	})
})

var _ = Describe("Years", func() {
	It("should list distinct years after 1970, newest first", func() {
		docs := []*document.Document{
			{ID: 1, DateSort: "2023-01-01T00:00:00.000Z"},
			{ID: 2, DateSort: "2025-01-01T00:00:00.000Z"},
			{ID: 3, DateSort: "2023-06-01T00:00:00.000Z"},
			{ID: 4, DateSort: "1970-01-01T00:00:00.000Z"},
			{ID: 5},
		}
		Expect(document.Years(docs)).To(Equal([]int{2025, 2023}))
	})

	It("should return an empty list for no documents", func() {
		Expect(document.Years(nil)).To(BeEmpty())
	})
})
