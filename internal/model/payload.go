package model

import (
	"strings"
)

// WebhookEvent is the inbound event envelope delivered by the gateway. Field
// names vary across payload versions, so the same concept may arrive under
// several keys; every accessor below applies an explicit precedence list
// instead of guessing. Unknown fields are ignored.
type WebhookEvent struct {
	Event string `json:"event,omitempty"`
	Kind  string `json:"type,omitempty"`
	Token string `json:"token,omitempty"`

	// Connection-status events
	Status string `json:"status,omitempty"`
	Phone  string `json:"phone,omitempty"`

	// Message events: identifiers
	MessageID string `json:"messageId,omitempty"`
	LegacyID  string `json:"id,omitempty"`
	ChatID    string `json:"chatId,omitempty"`
	RemoteJid string `json:"remoteJid,omitempty"`

	// Message events: sender
	FromMe          bool   `json:"fromMe,omitempty"`
	SenderName      string `json:"senderName,omitempty"`
	ChatName        string `json:"chatName,omitempty"`
	NotifyName      string `json:"notifyName,omitempty"`
	FormattedNumber string `json:"formattedNumber,omitempty"`
	SenderPhoto     string `json:"senderPhoto,omitempty"`
	Photo           string `json:"photo,omitempty"`

	// Message events: content
	Text        *TextContent  `json:"text,omitempty"`
	Body        string        `json:"body,omitempty"`
	Caption     string        `json:"caption,omitempty"`
	MessageType string        `json:"messageType,omitempty"`
	MimeType    string        `json:"mimetype,omitempty"`
	Image       *MediaContent `json:"image,omitempty"`
	Audio       *MediaContent `json:"audio,omitempty"`
}

// TextContent carries the text body under either of two historical keys.
type TextContent struct {
	Message string `json:"message,omitempty"`
	Body    string `json:"body,omitempty"`
}

// MediaContent carries vendor media metadata.
type MediaContent struct {
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Media kinds recognized by the media pipeline.
const (
	MediaKindImage = "image"
	MediaKindAudio = "audio"
)

// IsConnectionEvent reports whether the envelope is a connection-status
// change rather than a message. The discriminator is tolerant: either an
// explicit event/type label or a bare status field with no chat identifier.
func (e *WebhookEvent) IsConnectionEvent() bool {
	switch strings.ToLower(e.Event) {
	case "connection", "connection.update", "status":
		return true
	}
	switch strings.ToLower(e.Kind) {
	case "connection", "status":
		return true
	}
	return e.Status != "" && e.ChatIdentifier() == ""
}

// ConnectionStatus maps the reported connectivity onto the instance enum.
func (e *WebhookEvent) ConnectionStatus() string {
	switch strings.ToLower(e.Status) {
	case "connected", "open":
		return InstanceStatusConnected
	case "connecting", "pairing":
		return InstanceStatusConnecting
	default:
		return InstanceStatusDisconnected
	}
}

// ChatIdentifier returns the chat id under precedence chatId > remoteJid.
func (e *WebhookEvent) ChatIdentifier() string {
	if e.ChatID != "" {
		return e.ChatID
	}
	return e.RemoteJid
}

// DedupKey returns the external message id, precedence messageId > id.
func (e *WebhookEvent) DedupKey() string {
	if e.MessageID != "" {
		return e.MessageID
	}
	return e.LegacyID
}

// TextBody returns the message text, precedence text.message > text.body >
// body > caption > media captions.
func (e *WebhookEvent) TextBody() string {
	if e.Text != nil {
		if e.Text.Message != "" {
			return e.Text.Message
		}
		if e.Text.Body != "" {
			return e.Text.Body
		}
	}
	if e.Body != "" {
		return e.Body
	}
	if e.Caption != "" {
		return e.Caption
	}
	if e.Image != nil && e.Image.Caption != "" {
		return e.Image.Caption
	}
	if e.Audio != nil && e.Audio.Caption != "" {
		return e.Audio.Caption
	}
	return ""
}

// DisplayName returns the sender display name, precedence senderName >
// chatName > notifyName. Callers fall back to the phone number themselves.
func (e *WebhookEvent) DisplayName() string {
	if e.SenderName != "" {
		return e.SenderName
	}
	if e.ChatName != "" {
		return e.ChatName
	}
	return e.NotifyName
}

// AvatarURL returns the avatar, precedence senderPhoto > photo.
func (e *WebhookEvent) AvatarURL() string {
	if e.SenderPhoto != "" {
		return e.SenderPhoto
	}
	return e.Photo
}

// MediaKind classifies the event as image or audio from the union of
// vendor-specific type discriminators. Returns "" for non-media messages.
// The union is an intentional tolerance for schema drift: any one field
// claiming a media type is enough.
func (e *WebhookEvent) MediaKind() string {
	for _, tag := range []string{e.MessageType, e.Kind, e.MimeType} {
		tag = strings.ToLower(tag)
		switch {
		case strings.Contains(tag, "image"), strings.Contains(tag, "sticker"):
			return MediaKindImage
		case strings.Contains(tag, "audio"), strings.Contains(tag, "ptt"):
			return MediaKindAudio
		}
	}
	if e.Image != nil {
		return MediaKindImage
	}
	if e.Audio != nil {
		return MediaKindAudio
	}
	return ""
}
