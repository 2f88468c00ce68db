// Package template fills {{placeholder}} markers in stage message templates.
package template

import "strings"

// Vars are the values available to a stage template.
type Vars struct {
	StartupName   string
	SenderName    string
	SenderCompany string
	RecipientName string
}

// Render substitutes the known placeholders in a single left-to-right pass.
// Unknown placeholders are kept, and substituted values are never re-expanded.
func Render(tmpl string, v Vars) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	return strings.NewReplacer(
		"{{startupName}}", v.StartupName,
		"{{senderName}}", v.SenderName,
		"{{senderCompany}}", v.SenderCompany,
		"{{recipientName}}", v.RecipientName,
	).Replace(tmpl)
}

// IsBlank reports whether a template disables its channel.
func IsBlank(tmpl string) bool {
	return strings.TrimSpace(tmpl) == ""
}
