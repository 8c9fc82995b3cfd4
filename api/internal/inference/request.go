package inference

import (
	"chart-bot/api/internal/imaging"
)

// UserInstruction accompanies every screenshot.
const UserInstruction = "Analyze this chart screenshot using the given strategy. " +
	"Return ONLY the required JSON. Use careful visual reading."

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 500
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

// Part is one content block of a message. Image parts carry the data URI and the raw JPEG
// so that engines which prefer inline blobs do not have to decode the URI again.
type Part struct {
	Type     PartType
	Text     string
	ImageURL string
	MimeType string
	Data     []byte
}

type Message struct {
	Role  Role
	Parts []Part
}

// Request is built once per screenshot and consumed by exactly one engine call.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	JSONOnly    bool
}

// BuildRequest combines the system prompt, the user instruction and the image into a two-message request.
func BuildRequest(system, user string, img imaging.Normalized) Request {
	return Request{
		Messages: []Message{
			{Role: RoleSystem, Parts: []Part{{Type: PartText, Text: system}}},
			{Role: RoleUser, Parts: []Part{
				{Type: PartText, Text: user},
				{Type: PartImage, ImageURL: img.DataURL(), MimeType: img.MimeType(), Data: img.Bytes},
			}},
		},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		JSONOnly:    true,
	}
}

// System returns the text of the system message, if any.
func (r Request) System() string {
	for _, m := range r.Messages {
		if m.Role == RoleSystem && len(m.Parts) > 0 {
			return m.Parts[0].Text
		}
	}
	return ""
}

// UserParts returns the content blocks of the user message.
func (r Request) UserParts() []Part {
	for _, m := range r.Messages {
		if m.Role == RoleUser {
			return m.Parts
		}
	}
	return nil
}
