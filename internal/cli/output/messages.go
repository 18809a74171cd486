package output

import "fmt"

// Header prints a section heading: markdown "# text" on a pipe, styled
// text on a terminal.
func (r *Renderer) Header(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(1, text))
		return
	}
	r.Println(r.styles.Header1.Render(text))
}

// Success prints a success line.
func (r *Renderer) Success(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(text)
		return
	}
	r.Println(r.styles.Success.Render(text))
}

// Warning prints a warning line.
func (r *Renderer) Warning(text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println("Warning: " + text)
		return
	}
	r.Println(r.styles.Warning.Render(text))
}

// Error prints an error line to the error writer.
func (r *Renderer) Error(text string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(text))
}

// StatusLine prints a "Key: value" line with the key emphasized.
func (r *Renderer) StatusLine(key, value string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Printf("- **%s**: %s\n", key, value)
		return
	}
	r.Printf("%s %s\n", r.styles.Bold.Render(key+":"), value)
}

// Table renders columns and rows in the effective mode.
func (r *Renderer) Table(columns []string, rows [][]any) error {
	return r.Result(&Result{Columns: columns, Rows: rows})
}
