package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/searchmesh/core"
)

// ResponsePayload renders a function response as the JSON text injected back
// into the model conversation. Failed responses render as {"error": {...}}.
func ResponsePayload(fr core.FunctionResponse) string {
	var v any = fr.Response
	if fr.Error != nil {
		v = map[string]any{"error": fr.Error}
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// ResponseObject renders a function response as a JSON object map, for
// providers whose tool result slot must be an object.
func ResponseObject(fr core.FunctionResponse) map[string]any {
	payload := ResponsePayload(fr)
	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": payload}
}

// CallArguments decodes the JSON arguments of a recorded function call for
// replay to a backend. Empty arguments decode to an empty object; anything
// that is not a JSON object is a ModelError.
func CallArguments(fc core.FunctionCall) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(fc.Arguments) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, core.WrapError(core.KindModel, fmt.Sprintf("function call %q (%s) has malformed arguments", fc.Name, fc.ID), err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// UserText flattens user content (text plus attachment references) into a
// single prompt string for providers without native attachment support.
func UserText(c core.Content) string {
	var s string
	for _, p := range c.Parts {
		switch v := p.(type) {
		case core.TextPart:
			s += v.Text
		case core.FilePart:
			s += fmt.Sprintf("\n[attachment %s (%s): %s]", v.Attachment.Name, v.Attachment.ContentType, v.Attachment.URL)
		}
	}
	return s
}

// WrapBackendError classifies a backend error with the kind derived from its
// HTTP status. A status of 0 means no status was available.
func WrapBackendError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := core.KindModel
	if status > 0 {
		kind = ClassifyStatus(status)
	}
	return core.WrapError(kind, provider+" generation failed", err)
}
