// Package output delivers command results to the user.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	"notify-shell/src/clipboard"
)

// Target receives the outcome of one command.
type Target interface {
	OnSuccess(v any) error
	OnFailure(err error) error
}

// Text renders v as a single line: strings verbatim, everything else as compact JSON.
func Text(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case json.RawMessage:
		return string(t), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

// StdoutTarget prints results one per line and errors to ErrWriter.
type StdoutTarget struct {
	Writer    io.Writer
	ErrWriter io.Writer
}

func (t StdoutTarget) OnSuccess(v any) error {
	text, err := Text(v)
	if err != nil || text == "" {
		return err
	}
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	w := t.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	_, werr := fmt.Fprintf(w, "Error: %v\n", err)
	return werr
}

// JSONTarget prints indented JSON, including failures as {"error": ...}.
type JSONTarget struct {
	Writer io.Writer
}

func (t JSONTarget) writer() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t JSONTarget) OnSuccess(v any) error {
	if raw, ok := v.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			v = decoded
		}
	}
	enc := json.NewEncoder(t.writer())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (t JSONTarget) OnFailure(err error) error {
	enc := json.NewEncoder(t.writer())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]string{"error": err.Error()})
}

// ClipboardTarget copies the rendered result to the system clipboard.
type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(v any) error {
	text, err := Text(v)
	if err != nil {
		return err
	}
	return clipboard.Write(text)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// Multi delivers to every target, collecting their errors.
func Multi(targets ...Target) Target { return multiTarget(targets) }

type multiTarget []Target

func (m multiTarget) OnSuccess(v any) error {
	var result *multierror.Error
	for _, t := range m {
		if err := t.OnSuccess(v); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m multiTarget) OnFailure(err error) error {
	var result *multierror.Error
	for _, t := range m {
		if ferr := t.OnFailure(err); ferr != nil {
			result = multierror.Append(result, ferr)
		}
	}
	return result.ErrorOrNil()
}
