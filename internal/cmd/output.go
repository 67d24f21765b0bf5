package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"staffdesk/internal/client"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/session"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

// view is a value with its table rendering.
type view struct {
	data    any
	headers []string
	rows    [][]string
}

func (a *app) render(w io.Writer, v view) error {
	switch a.cfg.Output {
	case "json":
		b, err := json.MarshalIndent(v.data, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		// Round trip through JSON so keys keep their wire names.
		b, err := json.Marshal(v.data)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	}
	if len(v.headers) == 0 {
		_, err := fmt.Fprintln(w, fields(v.rows))
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(v.headers...).
		Rows(v.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// fields renders label/value pairs one per line.
func fields(rows [][]string) string {
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(labelStyle.Render(r[0] + ":"))
		b.WriteByte(' ')
		b.WriteString(r[1])
	}
	return b.String()
}

func notify(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// message picks the text a person should see for err.
func message(err error) string {
	var ve *services.ValidationError
	var le *session.LoginError
	var ae *client.APIError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &le):
		return le.Message
	case client.IsUnauthorized(err):
		return "Your session has ended. Run `staffctl auth login` to sign in again."
	case errors.As(err, &ae) && ae.Message != "":
		return ae.Message
	}
	return err.Error()
}

func notifyError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("✗ "+message(err)))
}

func ts(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func optTS(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return ts(*t)
}

func money(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
