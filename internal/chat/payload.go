package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MessageType discriminates persisted messages.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeVoice MessageType = "voice"
	TypePoll  MessageType = "poll"
)

const (
	MaxTextLen          = 2000
	MaxQuestionLen      = 200
	MaxOptionLen        = 100
	MinPollOptions      = 2
	MaxPollOptions      = 10
	DefaultVoiceCaption = "Voice message"
)

// Payload is the closed set of message bodies: Text, Voice or Poll.
type Payload interface {
	Type() MessageType
	payload()
}

// Text is a plain chat line.
type Text struct {
	Body string
}

// Voice references an audio blob uploaded before the message is created.
type Voice struct {
	AudioRef string
	Caption  string
}

// Poll is a question with 2..10 ordered options.
type Poll struct {
	Question string
	Options  []string
}

func (Text) Type() MessageType  { return TypeText }
func (Voice) Type() MessageType { return TypeVoice }
func (Poll) Type() MessageType  { return TypePoll }

func (Text) payload()  {}
func (Voice) payload() {}
func (Poll) payload()  {}

// Content is the displayable text of a payload: the body, the caption or the
// poll question.
func Content(p Payload) string {
	switch v := p.(type) {
	case Text:
		return v.Body
	case Voice:
		return v.Caption
	case Poll:
		return v.Question
	}
	return ""
}

// Normalize trims p and checks it against the per-type limits. The returned
// payload is what gets persisted.
func Normalize(p Payload) (Payload, error) {
	switch v := p.(type) {
	case Text:
		return normalizeText(v)
	case Voice:
		return normalizeVoice(v)
	case Poll:
		return normalizePoll(v)
	case nil:
		return nil, invalid("missing payload")
	default:
		return nil, invalid(fmt.Sprintf("unsupported payload %T", p))
	}
}

func normalizeText(t Text) (Payload, error) {
	body := strings.TrimSpace(t.Body)
	if body == "" {
		return nil, invalid("content is required")
	}
	if n := utf8.RuneCountInString(body); n > MaxTextLen {
		return nil, invalid(fmt.Sprintf("content exceeds %d characters", MaxTextLen))
	}
	return Text{Body: body}, nil
}

func normalizeVoice(v Voice) (Payload, error) {
	ref := strings.TrimSpace(v.AudioRef)
	if ref == "" {
		return nil, invalid("audio file is required")
	}
	caption := strings.TrimSpace(v.Caption)
	if caption == "" {
		caption = DefaultVoiceCaption
	}
	if utf8.RuneCountInString(caption) > MaxTextLen {
		return nil, invalid(fmt.Sprintf("caption exceeds %d characters", MaxTextLen))
	}
	return Voice{AudioRef: ref, Caption: caption}, nil
}

func normalizePoll(p Poll) (Payload, error) {
	question := strings.TrimSpace(p.Question)
	if question == "" {
		return nil, invalid("poll question is required")
	}
	if utf8.RuneCountInString(question) > MaxQuestionLen {
		return nil, invalid(fmt.Sprintf("poll question exceeds %d characters", MaxQuestionLen))
	}
	if len(p.Options) < MinPollOptions || len(p.Options) > MaxPollOptions {
		return nil, invalid(fmt.Sprintf("poll must have %d-%d options", MinPollOptions, MaxPollOptions))
	}
	options := make([]string, 0, len(p.Options))
	for _, opt := range p.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" || utf8.RuneCountInString(opt) > MaxOptionLen {
			return nil, invalid(fmt.Sprintf("all options must be non-empty strings (max %d chars)", MaxOptionLen))
		}
		options = append(options, opt)
	}
	return Poll{Question: question, Options: options}, nil
}
