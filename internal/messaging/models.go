package messaging

// SendMessageRequest carries the query parameters of /send-message.
type SendMessageRequest struct {
	Number  string `form:"number" binding:"required"`
	Message string `form:"message" binding:"required"`
	RefID   string `form:"refId"`
}

// SendResult identifies a sent message, echoing the caller's reference.
type SendResult struct {
	MessageID string `json:"messageId"`
	RefID     string `json:"refId,omitempty"`
}
