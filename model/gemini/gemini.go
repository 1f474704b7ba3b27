// Package gemini provides a model.Model backed by Google's Gemini API via the
// generative-ai-go SDK. It is the default provider of the chat service.
package gemini

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/model"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-pro"

// Options configures the Gemini adapter.
type Options struct {
	Model       string
	Temperature float32
	APIKey      string
}

// Model wraps a genai client behind model.Model.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini model with its own client. Close releases it.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{Model: DefaultModel}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		return nil, core.NewError(core.KindConfiguration, "gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, core.WrapError(core.KindConfiguration, "create gemini client", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// Close closes the underlying client.
func (m *Model) Close() error { return m.client.Close() }

// Generate implements model.Model. Gemini always streams; non-streaming
// requests simply suppress the partial chunks.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		history, last, err := buildHistory(req.Contents)
		if err != nil {
			errCh <- err
			return
		}
		if len(last) == 0 {
			errCh <- core.NewError(core.KindModel, "no contents provided")
			return
		}

		gm := m.client.GenerativeModel(m.opts.Model)
		temperature := m.opts.Temperature
		if req.Temperature != nil {
			temperature = float32(*req.Temperature)
		}
		gm.SetTemperature(temperature)
		if req.Instructions != "" {
			gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.Instructions)}}
		}
		if len(req.Tools) > 0 {
			gm.Tools = []*genai.Tool{{FunctionDeclarations: buildDeclarations(req.Tools)}}
		}

		cs := gm.StartChat()
		cs.History = history
		iter := cs.SendMessageStream(ctx, last...)

		var (
			text   string
			calls  []core.FunctionCall
			finish = "stop"
			usage  *model.TokenUsage
		)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				errCh <- classify(err)
				return
			}
			if resp.UsageMetadata != nil {
				usage = &model.TokenUsage{
					PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
				}
			}
			for _, cand := range resp.Candidates {
				if cand.FinishReason == genai.FinishReasonMaxTokens {
					finish = "length"
				}
				if cand.Content == nil {
					continue
				}
				for _, p := range cand.Content.Parts {
					switch v := p.(type) {
					case genai.Text:
						if v == "" {
							continue
						}
						text += string(v)
						if !req.Stream {
							continue
						}
						select {
						case <-ctx.Done():
							errCh <- ctx.Err()
							return
						case out <- model.Response{Partial: true, Content: core.NewTextContent(core.RoleAssistant, string(v))}:
						}
					case genai.FunctionCall:
						calls = append(calls, toFunctionCall(v))
					case *genai.FunctionCall:
						calls = append(calls, toFunctionCall(*v))
					}
				}
			}
		}

		parts := make([]core.Part, 0, len(calls)+1)
		if text != "" {
			parts = append(parts, core.TextPart{Text: text})
		}
		for _, fc := range calls {
			parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
		}
		if len(calls) > 0 {
			finish = "tool_calls"
		}
		out <- model.Response{
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: finish,
			Usage:        usage,
		}
	}()

	return out, errCh
}

// toFunctionCall assigns a fresh id since Gemini calls carry only a name.
func toFunctionCall(fc genai.FunctionCall) core.FunctionCall {
	args := "{}"
	if fc.Args != nil {
		if b, err := json.Marshal(fc.Args); err == nil {
			args = string(b)
		}
	}
	return core.FunctionCall{ID: core.NewID(), Name: fc.Name, Arguments: args}
}

// buildHistory splits the conversation into chat history and the parts of the
// final message that is sent to the model.
func buildHistory(contents []core.Content) ([]*genai.Content, []genai.Part, error) {
	var history []*genai.Content
	for _, c := range contents {
		gc, err := toContent(c)
		if err != nil {
			return nil, nil, err
		}
		if gc != nil {
			history = append(history, gc)
		}
	}
	if len(history) == 0 {
		return nil, nil, nil
	}
	last := history[len(history)-1]
	return history[:len(history)-1], last.Parts, nil
}

func toContent(c core.Content) (*genai.Content, error) {
	var parts []genai.Part
	role := "user"
	switch c.Role {
	case core.RoleSystem:
		return nil, nil
	case core.RoleAssistant:
		role = "model"
		if text := c.Text(); text != "" {
			parts = append(parts, genai.Text(text))
		}
		for _, fc := range c.FunctionCalls() {
			args, err := model.CallArguments(fc)
			if err != nil {
				return nil, err
			}
			parts = append(parts, genai.FunctionCall{Name: fc.Name, Args: args})
		}
	case core.RoleTool:
		for _, fr := range c.FunctionResponses() {
			parts = append(parts, genai.FunctionResponse{Name: fr.Name, Response: model.ResponseObject(fr)})
		}
		if len(parts) == 0 {
			if text := c.Text(); text != "" {
				parts = append(parts, genai.Text(text))
			}
		}
	default:
		if text := model.UserText(c); text != "" {
			parts = append(parts, genai.Text(text))
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return &genai.Content{Role: role, Parts: parts}, nil
}

func buildDeclarations(tools []model.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  toSchema(t.Function.Parameters),
		})
	}
	return decls
}

// toSchema converts a JSON Schema map into the subset Gemini understands.
func toSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	switch m["type"] {
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	default:
		s.Type = genai.TypeObject
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if f, ok := m["format"].(string); ok && (f == "enum" || f == "date-time") {
		s.Format = f
	}
	for _, e := range asSlice(m["enum"]) {
		if str, ok := e.(string); ok {
			s.Enum = append(s.Enum, str)
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}
	for _, r := range asSlice(m["required"]) {
		if str, ok := r.(string); ok {
			s.Required = append(s.Required, str)
		}
	}
	return s
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return core.WrapError(core.KindModel, "gemini response blocked", err)
	}
	if apiErr, ok := apierror.FromError(err); ok {
		return model.WrapBackendError("gemini", apiErr.HTTPCode(), err)
	}
	return model.WrapBackendError("gemini", 0, err)
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}
