package dto

// UploadURLRequest payload.
type UploadURLRequest struct {
	FileName string `json:"file_name"`
}

// UploadURLResponse carries a presigned upload target.
type UploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
