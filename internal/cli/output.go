package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/logging"
	"deltawatch/internal/usecase/watch"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func validateFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unknown output format %q: expected text or json", format)
	}
	return nil
}

// RunOutput is the JSON form of a run result.
type RunOutput struct {
	RunID      string       `json:"run_id"`
	Job        string       `json:"job"`
	State      string       `json:"state"`
	Reason     string       `json:"reason,omitempty"`
	Error      string       `json:"error,omitempty"`
	NotifyErr  string       `json:"notify_error,omitempty"`
	Extracted  int          `json:"extracted"`
	Known      int          `json:"known"`
	NothingNew bool         `json:"nothing_new"`
	Notified   bool         `json:"notified"`
	DurationMS int64        `json:"duration_ms"`
	NewItems   []ItemOutput `json:"new_items"`
}

// ItemOutput is the JSON form of an item.
type ItemOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newRunOutput(r *watch.RunResult, runErr error) RunOutput {
	out := RunOutput{
		RunID:      r.RunID,
		Job:        r.Job,
		State:      string(r.State),
		Extracted:  r.Extracted,
		Known:      r.Known,
		NothingNew: r.NothingNew,
		Notified:   r.Notified,
		DurationMS: r.Duration.Milliseconds(),
		NewItems:   itemOutputs(r.NewItems),
	}
	if runErr != nil {
		out.Error = logging.Redact(runErr)
		var re *watch.RunError
		if errors.As(runErr, &re) {
			out.Reason = string(re.Reason)
		}
	}
	if r.NotifyErr != nil {
		out.NotifyErr = logging.Redact(r.NotifyErr)
	}
	return out
}

func itemOutputs(items []entity.Item) []ItemOutput {
	out := make([]ItemOutput, len(items))
	for i, it := range items {
		out[i] = ItemOutput{ID: it.ID, Title: it.Title}
	}
	return out
}

func printResult(w io.Writer, r *watch.RunResult, runErr error, format string) error {
	out := newRunOutput(r, runErr)
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if _, err := fmt.Fprintf(w, "[%s] %s in %dms\n", out.Job, out.State, out.DurationMS); err != nil {
		return err
	}
	switch {
	case runErr != nil:
		_, err := fmt.Fprintf(w, "  failed (%s): %s\n", out.Reason, out.Error)
		return err
	case out.NothingNew:
		_, err := fmt.Fprintf(w, "  nothing new (%d extracted, %d known)\n", out.Extracted, out.Known)
		return err
	}

	if _, err := fmt.Fprintf(w, "  %d new item(s), %d known\n", len(out.NewItems), out.Known); err != nil {
		return err
	}
	for i, it := range out.NewItems {
		if _, err := fmt.Fprintf(w, "  %d. %s\n     %s\n", i+1, it.Title, it.ID); err != nil {
			return err
		}
	}
	if out.NotifyErr != "" {
		_, err := fmt.Fprintf(w, "  notification failed: %s\n", out.NotifyErr)
		return err
	}
	return nil
}
