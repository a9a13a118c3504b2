package models

import "time"

// ImageType distinguishes the two photographs attached to a sample.
type ImageType string

const (
	ImageTypeSpecimen ImageType = "rock_specimen"
	ImageTypeOutcrop  ImageType = "outcrop"
)

// Valid reports whether the image type is a known literal.
func (t ImageType) Valid() bool {
	return t == ImageTypeSpecimen || t == ImageTypeOutcrop
}

// Image stores a photograph belonging to exactly one rock sample. The
// binary payload lives in the row; deletion happens only through the
// sample's cascade.
type Image struct {
	ID        string    `db:"id" json:"id"`
	SampleID  string    `db:"sample_id" json:"sample_id"`
	ImageType ImageType `db:"image_type" json:"image_type"`
	ImageData []byte    `db:"image_data" json:"-"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ImageMeta is an Image without its payload, used in sample detail
// responses.
type ImageMeta struct {
	ID        string    `db:"id" json:"id"`
	SampleID  string    `db:"sample_id" json:"sample_id"`
	ImageType ImageType `db:"image_type" json:"image_type"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ImageUpload carries an uploaded file from the handler into the sample
// service before validation.
type ImageUpload struct {
	ImageType ImageType
	FileName  string
	Data      []byte
}
