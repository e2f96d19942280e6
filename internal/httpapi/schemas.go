package httpapi

import "github.com/forPelevin/montage/internal/types"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	AIAvailable bool   `json:"ai_available"`
	Message     string `json:"message"`
}

type AnalyzeResponse struct {
	Success    bool             `json:"success"`
	Ranges     []types.CutRange `json:"ranges"`
	Transcript string           `json:"transcript"`
	Metadata   AnalyzeMetadata  `json:"metadata"`
}

type AnalyzeMetadata struct {
	Duration float64 `json:"duration"`
	Source   string  `json:"source"`
}
