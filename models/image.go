package models

// Image represents one classified image in the catalog using GORM.
// It corresponds to the 'gallery_images' table. Filepath is the
// post-relocation absolute path and is unique; MakeTime is the file
// modification time at ingest, formatted yyMMdd_HHmmss.
type Image struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"no"`
	Filepath string `gorm:"uniqueIndex;not null" json:"filepath"`
	MakeTime string `gorm:"column:make_time" json:"makeTime"`
	Platform string `gorm:"index" json:"platform"`
	Metadata string `gorm:"type:text" json:"metadata,omitempty"` // JSON document, schema varies by platform
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "gallery_images"
}

// ImageSummary is the listing projection: everything but the metadata
// document, which can be large and is only needed on point lookups.
type ImageSummary struct {
	ID       uint   `json:"no"`
	Filepath string `json:"filepath"`
	Platform string `json:"platform"`
	MakeTime string `json:"makeTime"`
}
