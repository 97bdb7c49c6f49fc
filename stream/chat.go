//
// Tencent is pleased to support the open source community by making trpc-cassette-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the trpc-cassette-go source code from Tencent,
// please note that trpc-cassette-go source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package stream

// Role is the author of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content"`
}

// Request is a chat completions request body.
type Request struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
}

// FinishReason explains why a choice stopped.
type FinishReason string

// Known finish reasons.
const (
	FinishEOSToken FinishReason = "eos_token"
	FinishStop     FinishReason = "stop"
	FinishLength   FinishReason = "length"
)

// Truncated reports whether generation stopped because of the length limit.
func (r FinishReason) Truncated() bool {
	return r == FinishLength
}

// Choice is one entry of a response. Streaming responses carry Delta instead
// of Message.
type Choice struct {
	Index        int           `json:"index"`
	Message      *Message      `json:"message,omitempty"`
	Delta        *Message      `json:"delta,omitempty"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// Content returns the text of the choice.
func (c Choice) Content() string {
	switch {
	case c.Message != nil:
		return c.Message.Content
	case c.Delta != nil:
		return c.Delta.Content
	default:
		return ""
	}
}

// Response is a chat completions response or one streamed chunk of it.
type Response struct {
	Choices []Choice `json:"choices"`
}

// continued returns a copy of r extended with the truncated assistant output
// and a user turn asking to continue.
func (r Request) continued(partial, prompt string) Request {
	messages := make([]Message, 0, len(r.Messages)+2)
	messages = append(messages, r.Messages...)
	messages = append(messages,
		Message{Role: RoleAssistant, Content: partial},
		Message{Role: RoleUser, Content: prompt},
	)
	r.Messages = messages
	return r
}
