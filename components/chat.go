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

package components

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-cassette-go/fetch"
	"trpc.group/trpc-go/trpc-cassette-go/render"
	"trpc.group/trpc-go/trpc-cassette-go/stream"
)

const (
	chatHandler = "chat completions"
	chatPath    = "/chat/completions"
)

type chatSpec struct {
	BaseURL  string           `json:"baseUrl"`
	Message  *string          `json:"message"`
	Model    string           `json:"model"`
	Stream   bool             `json:"stream"`
	Messages []stream.Message `json:"messages"`
}

func (s chatSpec) request() stream.Request {
	messages := append([]stream.Message(nil), s.Messages...)
	if s.Message != nil {
		messages = append(messages, stream.Message{Role: stream.RoleUser, Content: *s.Message})
	}
	return stream.Request{Model: s.Model, Stream: s.Stream, Messages: messages}
}

type chatState struct {
	Content  *string `json:"content"`
	Progress bool    `json:"progress"`
}

// renderChat asks a chat completions endpoint and keeps the answer as the
// task state. Streamed answers are published while they grow.
func renderChat(_ context.Context, c *render.Context, _ chatState, spec chatSpec) (render.TaskState[chatState], error) {
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = c.Client().BaseURL()
	}
	req := spec.request()

	var state fetch.State[string]
	if req.Stream {
		open := stream.ClientOpener(c.Client(), baseURL, chatHandler, chatPath)
		state = render.UseStream(c, chatHandler, stream.Op(open, req, c.StreamOptions()...))
	} else {
		state = render.UseFetch(c, chatHandler, complete(baseURL, req))
	}

	switch state.Phase {
	case fetch.Collecting, fetch.Completed:
		content := state.Value
		return render.Skip(&chatState{
			Content:  &content,
			Progress: state.Phase == fetch.Collecting,
		}), nil
	case fetch.Error:
		return render.Break[chatState](render.Alert("Error", state.Err), nil), nil
	default:
		return render.Break[chatState](render.Loading("Loading..."), nil), nil
	}
}

// complete sends a non-streamed request through the OpenAI client.
func complete(baseURL string, req stream.Request) fetch.Op[string] {
	return func(ctx context.Context) (string, error) {
		opts := []openaiopt.RequestOption{openaiopt.WithMaxRetries(0)}
		if baseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(baseURL))
		}
		client := openai.NewClient(opts...)
		completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(req.Model),
			Messages: convertMessages(req.Messages),
		})
		if err != nil {
			return "", fmt.Errorf("Failed to fetch the %s: %w", chatHandler, err)
		}
		if len(completion.Choices) == 0 {
			return "", errors.New("Empty body: " + chatHandler)
		}
		return completion.Choices[0].Message.Content, nil
	}
}

func convertMessages(messages []stream.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case stream.RoleSystem:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		case stream.RoleAssistant:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		default:
			result[i] = openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			}
		}
	}
	return result
}
