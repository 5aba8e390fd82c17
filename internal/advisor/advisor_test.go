package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	req   openai.ChatCompletionRequest
	reply string
	err   error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewDefaultsModel(t *testing.T) {
	c, err := New("", "", WithCompleter(&fakeCompleter{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
}

func TestGenerate(t *testing.T) {
	fake := &fakeCompleter{reply: `["a", "b", "c"]`}
	c, err := New("", "gpt-4o", WithCompleter(fake))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	reply, err := c.Generate(context.Background(), "assess this transfer", 400)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply != `["a", "b", "c"]` {
		t.Errorf("reply = %q", reply)
	}

	if fake.req.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", fake.req.Model)
	}
	if fake.req.MaxCompletionTokens != 400 {
		t.Errorf("MaxCompletionTokens = %d, want 400", fake.req.MaxCompletionTokens)
	}
	if len(fake.req.Messages) != 2 || fake.req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("messages = %+v, want system + user", fake.req.Messages)
	}
	if fake.req.Messages[1].Content != "assess this transfer" {
		t.Errorf("user prompt = %q", fake.req.Messages[1].Content)
	}
}

func TestGenerateAPIError(t *testing.T) {
	cause := errors.New("quota exceeded")
	c, _ := New("", "", WithCompleter(&fakeCompleter{err: cause}))

	if _, err := c.Generate(context.Background(), "p", 100); !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
}

func TestGenerateEmptyReply(t *testing.T) {
	c, _ := New("", "", WithCompleter(&emptyCompleter{}))

	if _, err := c.Generate(context.Background(), "p", 100); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("err = %v, want ErrEmptyReply", err)
	}
}

type emptyCompleter struct{}

func (emptyCompleter) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}
