package model

import "time"

type ProjectFile struct {
	ID               int       `json:"id"`
	ProjectID        int       `json:"project_id"`
	OriginalName     string    `json:"original_name"`
	StoredName       string    `json:"stored_name"`
	MimeType         string    `json:"mime_type"`
	Size             int64     `json:"size"`
	SharedWithClient bool      `json:"shared_with_client"`
	UploadedBy       string    `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
}
