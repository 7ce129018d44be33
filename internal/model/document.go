package model

// Document is a supporting file (CV, diploma scan) a beneficiary attaches to
// an assessment. The file itself lives in the configured storage backend.
type Document struct {
	UUIDBase
	AssessmentID string `gorm:"index;type:varchar(36);not null" json:"assessmentId"`
	UploaderID   uint   `gorm:"index" json:"uploaderId"`
	FileName     string `gorm:"size:255;not null" json:"fileName"`
	ContentType  string `gorm:"size:100" json:"contentType"`
	Size         int64  `json:"size"`
	URL          string `gorm:"size:512" json:"url"`
}

func (Document) TableName() string {
	return "documents"
}
