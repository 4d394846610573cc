package media

// SendMediaRequest carries the query parameters of /send-media.
type SendMediaRequest struct {
	Number   string `form:"number" binding:"required"`
	MediaURL string `form:"mediaUrl" binding:"required"`
	Caption  string `form:"caption"`
}
