package dto

// ExportResponseDTO carries the presigned download URL of a generated PDF.
type ExportResponseDTO struct {
	URL string `json:"url"`
}
