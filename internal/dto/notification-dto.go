package dto

type NotificationDTO struct {
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Type    string                 `json:"type"`
	Link    string                 `json:"link,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
