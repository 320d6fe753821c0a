package models

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"` // "state"
	Payload interface{} `json:"payload"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type GenerateDeckRequest struct {
	Topic string `json:"topic"`
}

type SelectSlideRequest struct {
	Index int `json:"index"`
}

type EditSlideRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type SelectKeyRequest struct {
	APIKey string `json:"api_key"`
}

// UpdateSettingsRequest carries the workspace toggles; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	TemplateID *string `json:"template_id"`
	ImageSize  *string `json:"image_size"`
	UseSearch  *bool   `json:"use_search"`
}
