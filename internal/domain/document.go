package domain

import "time"

// Document is file metadata attached to a contract. The binary content
// lives elsewhere; contracts only need to know how many they carry.
type Document struct {
	ID           int64     `json:"id"`
	ContractID   int64     `json:"contractId"`
	FileName     string    `json:"fileName"`
	FileType     string    `json:"fileType"`
	FileSize     int64     `json:"fileSize"`
	DocumentType string    `json:"documentType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
