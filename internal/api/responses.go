package api

import "github.com/monkedh/sentinel/internal/phone"

// rootResponse backs GET /.
type rootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// healthServices backs the services block of GET /health.
type healthServices struct {
	Vision bool `json:"vision"`
	Agent  bool `json:"agent"`
	XAI    bool `json:"xai"`
}

// healthResponse backs GET /health.
type healthResponse struct {
	Status      string          `json:"status"`
	Services    healthServices  `json:"services"`
	LlamaServer bool            `json:"llama_server"`
	Phone       phone.Snapshot  `json:"phone"`
}

// updateIPResponse backs POST /phone/update_ip.
type updateIPResponse struct {
	Saved bool   `json:"saved"`
	IP    string `json:"ip"`
}

// videoUploadResponse backs POST /analyze/video-emergency.
type videoUploadResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// errorResponse is the generic JSON error body for 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}
