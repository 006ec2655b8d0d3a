package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/zarlcorp/zfill/internal/persona"
)

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: no clipboard tool found, install xclip or xsel")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

// field is one labelled value shown in persona views.
type field struct {
	label string
	value string
}

func personaFields(p persona.Persona) []field {
	return []field{
		{"Name", p.FullName},
		{"Username", p.Username},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Born", p.DateOfBirth},
		{"Street", p.Address.Street},
		{"City", p.Address.City},
		{"State", p.Address.State},
		{"Zip", p.Address.ZipCode},
		{"Country", p.Address.Country},
	}
}

// formatFields renders fields as label: value lines for copy all.
func formatFields(fs []field) string {
	var b strings.Builder
	for _, f := range fs {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToLower(f.label), f.value)
	}
	return b.String()
}
