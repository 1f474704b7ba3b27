package core

import (
	"fmt"
	"net/url"

	"github.com/gabriel-vasile/mimetype"
)

// Attachment is a file reference supplied with a user message. It is owned
// by the requesting turn and discarded once the turn completes.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// Validate checks the attachment metadata at the request boundary.
func (a Attachment) Validate() error {
	if a.Size < 0 {
		return NewError(KindValidation, fmt.Sprintf("attachment %q has negative size", a.Name))
	}
	u, err := url.Parse(a.URL)
	if err != nil || !u.IsAbs() {
		return NewError(KindValidation, fmt.Sprintf("attachment %q has invalid url", a.Name))
	}
	if mimetype.Lookup(a.ContentType) == nil {
		return NewError(KindValidation, fmt.Sprintf("attachment %q has unsupported content type %q", a.Name, a.ContentType))
	}
	return nil
}
