// Package templates holds the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissible alert carrying the sanitized message and
// its support code.
func ErrorAlert(message, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<div class="alert alert-error" role="alert" data-code="`+templ.EscapeString(code)+`">`+
				`<span class="alert-message">`+templ.EscapeString(message)+`</span>`+
				`<span class="alert-code">`+templ.EscapeString(code)+`</span>`+
				`<button type="button" class="alert-dismiss" aria-label="Dismiss" onclick="this.parentElement.remove()">&times;</button>`+
				`</div>`)
		return err
	})
}

// SuccessAlert renders a transient confirmation for a completed action.
func SuccessAlert(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<div class="alert alert-success" role="status">`+templ.EscapeString(message)+`</div>`)
		return err
	})
}
