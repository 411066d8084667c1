package media

import "time"

// Media is the metadata record for an object stored in the bucket. The bytes
// themselves never pass through this service; clients upload and download
// through presigned URLs.
type Media struct {
	ID          int64     `json:"id"`
	StorageKey  string    `json:"storage_key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploaderID  int64     `json:"uploader_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Upload is a pending upload slot: a fresh storage key plus the presigned
// PUT URL the client writes the bytes to.
type Upload struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}
