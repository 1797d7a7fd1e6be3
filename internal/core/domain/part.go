package domain

import "time"

type PartStatus string

const (
	PartUploaded  PartStatus = "uploaded"
	PartAnalyzing PartStatus = "analyzing"
	PartAnalyzed  PartStatus = "analyzed"
	PartFailed    PartStatus = "failed"
)

// Part is the lifecycle record of one uploaded CAD file.
type Part struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	FileSize       int64           `json:"file_size"`
	ContentHash    string          `json:"content_hash"`
	StoragePath    string          `json:"storage_path"`
	Quantity       int             `json:"quantity"`
	Material       string          `json:"material,omitempty"`
	Tolerance      string          `json:"tolerance,omitempty"`
	ForceReanalyze bool            `json:"force_reanalyze,omitempty"`
	Status         PartStatus      `json:"status"`
	Error          string          `json:"error,omitempty"`
	Analysis       *AnalysisResult `json:"analysis,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
