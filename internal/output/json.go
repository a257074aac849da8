package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ramkansal/nitfang/pkg/plugin"
)

// JSONWriter writes every result as one indented JSON document.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter creates a JSON writer on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return &JSONWriter{enc: enc}
}

func (w *JSONWriter) Name() string { return "json" }

func (w *JSONWriter) WriteUsers(page *plugin.UserPage) error {
	return w.write("users", page)
}

func (w *JSONWriter) WriteProfile(page *plugin.ProfilePage) error {
	return w.write("profile", page)
}

func (w *JSONWriter) WriteTweets(page *plugin.TweetPage) error {
	return w.write("tweets", page)
}

func (w *JSONWriter) write(what string, v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	return nil
}
