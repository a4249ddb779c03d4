package dto

import "io"

// UploadFile is an image received from a multipart form.
type UploadFile struct {
	Reader   io.Reader
	FileName string
}

type MessageResponse struct {
	Message string `json:"message"`
}
