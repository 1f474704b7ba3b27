// Package core provides the foundational value types shared by every
// SearchMesh layer. It defines:
//
//   - Content / Part (role based conversation content with text, tool call
//     and tool result segments)
//   - Event (the tagged union streamed to callers during a turn)
//   - ErrorKind / Error (the closed error taxonomy used from provider
//     clients up to the HTTP envelope)
//   - ToolContext (per tool invocation scope: context, call id, logger)
//   - StepLimiter (bounds model round trips inside a turn)
//
// The package carries no orchestration or transport logic so that model
// adapters, tools and the orchestrator can depend on it without cycles.
package core
