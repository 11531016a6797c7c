package openai

import (
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/zatekoja/firstresponder/backend/internal/domain/entities"
)

const triageSystemPrompt = `You are a first-aid triage assistant for patients in rural India who are waiting for a community health worker. Answer in short, simple sentences. Give safe first-aid steps the patient or family can take right now, and say clearly when they must go to the nearest hospital or call 108. Never prescribe medicines or doses. If an image is attached, describe only what is visible and relevant. Reply in the language the patient used.`

// languageNames maps the names speech recognition reports to ISO codes
var languageNames = map[string]string{
	"english":   "en",
	"hindi":     "hi",
	"bengali":   "bn",
	"tamil":     "ta",
	"telugu":    "te",
	"marathi":   "mr",
	"gujarati":  "gu",
	"kannada":   "kn",
	"malayalam": "ml",
	"punjabi":   "pa",
	"urdu":      "ur",
}

func buildChatMessages(query entities.TriageQuery) []goopenai.ChatCompletionMessage {
	system := triageSystemPrompt
	if query.Language != "" {
		system += "\nPreferred language: " + query.Language + "."
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(query.History)+2)
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})

	for _, turn := range query.History {
		role := goopenai.ChatMessageRoleUser
		if turn.Role == entities.TriageRoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	prompt := strings.TrimSpace(query.Prompt)
	if query.Image == "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})
		return messages
	}

	if prompt == "" {
		prompt = "What should I do about this?"
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role: goopenai.ChatMessageRoleUser,
		MultiContent: []goopenai.ChatMessagePart{
			{Type: goopenai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    imageDataURL(query.Image),
					Detail: goopenai.ImageURLDetailLow,
				},
			},
		},
	})
	return messages
}

// imageDataURL accepts a data URL or raw base64 and returns a data URL
func imageDataURL(image string) string {
	image = strings.TrimSpace(image)
	if strings.HasPrefix(image, "data:") || strings.HasPrefix(image, "https://") {
		return image
	}
	mime := "image/jpeg"
	if strings.HasPrefix(image, "iVBOR") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + image
}

func languageCode(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := languageNames[name]; ok {
		return code
	}
	return name
}
