package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai_builder_server/internal/types"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReply struct {
	content string
	err     error
}

type fakeClient struct {
	replies  []fakeReply
	requests []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no reply queued")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r.err != nil {
		return openai.ChatCompletionResponse{}, r.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: r.content}}},
	}, nil
}

func newTestGenerator(replies ...fakeReply) (*Generator, *fakeClient) {
	client := &fakeClient{replies: replies}
	g := NewGeneratorWithClient(client, "test-model", nil)
	g.retryDelay = 0
	return g, client
}

const twoFiles = "```json\n" + `{"files": [
  {"filename": "./components/Button.jsx", "type": "jsx", "content": "function Button(){return null;}"},
  {"filename": "App.jsx", "content": "function App(){return <Button/>;}"}
]}` + "\n```"

func TestGenerate(t *testing.T) {
	g, client := newTestGenerator(fakeReply{content: twoFiles})

	res, err := g.Generate(context.Background(), "a todo app", "p1", "")
	require.NoError(t, err)

	assert.Equal(t, "test-model", res.Model)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "components/Button.jsx", res.Files[0].Path)
	assert.Equal(t, "Button.jsx", res.Files[0].Name)
	assert.Equal(t, "App.jsx", res.Files[1].Path)
	assert.Equal(t, "jsx", res.Files[1].Type)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "test-model", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[1].Content, "a todo app")
}

func TestGenerateUsesRequestedModel(t *testing.T) {
	g, client := newTestGenerator(fakeReply{content: twoFiles})

	res, err := g.Generate(context.Background(), "x", "p1", " gpt-4o-mini ")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.Equal(t, "gpt-4o-mini", client.requests[0].Model)
}

func TestGenerateRetriesTransientErrorOnce(t *testing.T) {
	g, client := newTestGenerator(
		fakeReply{err: &openai.APIError{HTTPStatusCode: 503, Message: "unavailable"}},
		fakeReply{content: twoFiles},
	)

	res, err := g.Generate(context.Background(), "x", "p1", "")
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	assert.Len(t, client.requests, 2)
}

func TestGenerateGivesUpAfterSecondFailure(t *testing.T) {
	g, client := newTestGenerator(
		fakeReply{err: &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}},
		fakeReply{err: &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}},
		fakeReply{content: twoFiles},
	)

	_, err := g.Generate(context.Background(), "x", "p1", "")
	require.Error(t, err)
	assert.Len(t, client.requests, 2)
}

func TestGenerateDoesNotRetryPermanentErrors(t *testing.T) {
	g, client := newTestGenerator(fakeReply{err: &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}})

	_, err := g.Generate(context.Background(), "x", "p1", "")
	require.Error(t, err)
	assert.Len(t, client.requests, 1)
}

func TestGenerateRetryHonoursContext(t *testing.T) {
	g, client := newTestGenerator(
		fakeReply{err: &openai.APIError{HTTPStatusCode: 503}},
		fakeReply{content: twoFiles},
	)
	g.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, "x", "p1", "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, client.requests, 1)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  error
	}{
		{name: "empty", reply: "  ", want: ErrEmptyResponse},
		{name: "garbage", reply: "Sure! Here is your app.", want: ErrUnparsable},
		{name: "no files", reply: `{"files": []}`, want: ErrNoFiles},
		{name: "only unnamed files", reply: `[{"filename": "", "content": "x"}]`, want: ErrNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGenerator(fakeReply{content: tt.reply})
			_, err := g.Generate(context.Background(), "x", "p1", "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	g, client := newTestGenerator()
	_, err := g.Generate(context.Background(), " \n\t", "p1", "")
	require.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = g.GenerateCodeChanges(context.Background(), "  ", nil, "")
	require.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Empty(t, client.requests)
}

func TestGenerateCodeChanges(t *testing.T) {
	g, client := newTestGenerator(fakeReply{content: `{"changes": [{"filename": "App.jsx", "content": "function App(){return 2;}"}]}`})
	current := []types.SourceFile{
		{Name: "App.jsx", Path: "App.jsx", Type: "jsx", Content: "function App(){return 1;}"},
	}

	changed, err := g.GenerateCodeChanges(context.Background(), "return 2", current, "")
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, "function App(){return 2;}", changed[0].Content)

	prompt := client.requests[0].Messages[1].Content
	assert.Contains(t, prompt, "return 2")
	assert.Contains(t, prompt, "File: App.jsx\n```jsx\nfunction App(){return 1;}\n```\n")
}

func TestGenerateCodeChangesAllowsNoChanges(t *testing.T) {
	g, _ := newTestGenerator(fakeReply{content: `{"files": []}`})
	changed, err := g.GenerateCodeChanges(context.Background(), "nothing", nil, "")
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestContextFilesLengthensFence(t *testing.T) {
	out := contextFiles([]types.SourceFile{{Path: "README.md", Content: "see ``` here"}})
	assert.True(t, strings.HasPrefix(out, "File: README.md\n````\nsee ``` here\n````\n"), out)
}
