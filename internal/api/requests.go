package api

// frameAnalyzeRequest is the body of POST /analyze/frame.
type frameAnalyzeRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	Timestamp   string `json:"timestamp"`
	FrameNumber uint64 `json:"frame_number"`
}

// updateIPRequest is the body of POST /phone/update_ip.
type updateIPRequest struct {
	IP string `json:"ip" binding:"required"`
}
