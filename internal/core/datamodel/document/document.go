package document

import "time"

type Document struct {
	ID                      int64     `gorm:"primaryKey"`
	Title                   string    `gorm:"column:title;not null"`
	ProjectType             string    `gorm:"column:project_type"`
	ZoningApplicationNumber string    `gorm:"column:zoning_application_number;index"`
	Zoning                  string    `gorm:"column:zoning"`
	DateOfApplication       string    `gorm:"column:date_of_application"`
	DueDate                 string    `gorm:"column:due_date"`
	ReceivedBy              string    `gorm:"column:received_by"`
	AssistedBy              string    `gorm:"column:assisted_by"`
	ApplicantName           string    `gorm:"column:applicant_name"`
	RoutedTo                []string  `gorm:"column:routed_to;type:text;serializer:json"`
	Location                string    `gorm:"column:location"`
	Barangay                string    `gorm:"column:barangay"`
	Purok                   string    `gorm:"column:purok"`
	Landmark                string    `gorm:"column:landmark"`
	FloorArea               string    `gorm:"column:floor_area"`
	LotArea                 string    `gorm:"column:lot_area"`
	Storey                  string    `gorm:"column:storey"`
	Mezanine                string    `gorm:"column:mezanine"`
	OIC                     string    `gorm:"column:oic"`
	DateAdded               string    `gorm:"column:date_added"`
	DateSort                string    `gorm:"column:date_sort;index"`
	CreatedBy               int64     `gorm:"column:created_by"`
	CreatedAt               time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time `gorm:"column:updated_at;autoUpdateTime"`
	Files                   []File    `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

func (Document) TableName() string {
	return "documents"
}

type File struct {
	ID         int64     `gorm:"primaryKey"`
	DocumentID int64     `gorm:"column:document_id;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	MimeType   string    `gorm:"column:mime_type"`
	Size       int64     `gorm:"column:size"`
	StorageKey string    `gorm:"column:storage_key"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (File) TableName() string {
	return "attached_files"
}
