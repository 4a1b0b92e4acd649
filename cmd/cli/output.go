package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
)

// section is one titled table of a table-format report
type section struct {
	title   string
	headers []string
	rows    [][]string
	note    string
}

// write renders v as json or yaml, or the sections as tables
func write(w io.Writer, format string, v any, sections func() []section) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		// yaml keys follow the json tags
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case formatTable:
		for _, s := range sections() {
			if _, err := fmt.Fprintln(w, renderSection(s)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (use json, yaml or table)", format)
	}
}

func renderSection(s section) string {
	var b strings.Builder
	if s.title != "" {
		b.WriteString(titleStyle.Render(s.title))
		b.WriteString("\n")
	}
	if len(s.rows) == 0 {
		b.WriteString(mutedStyle.Render("(none)"))
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(s.headers...).
			Rows(s.rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		b.WriteString(t.String())
	}
	if s.note != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(s.note))
	}
	return b.String()
}

func num(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func optNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}
