package report

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateguard/pkg/domain"
)

// Markdown describes page and every State it issued.
func Markdown(scope string, page *domain.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Page `%s`\n\n", page.Name)
	fmt.Fprintf(&sb, "- **Scope:** `%s`\n", scope)
	fmt.Fprintf(&sb, "- **Token:** `%s`\n", page.Token)
	if page.FlowID != "" {
		fmt.Fprintf(&sb, "- **Flow:** `%s`\n", page.FlowID)
	}
	if page.Parent != "" {
		fmt.Fprintf(&sb, "- **Extends:** `%s`\n", page.Parent)
	}
	fmt.Fprintf(&sb, "- **States:** %d\n", page.StatesCount())
	for name := range page.Seals {
		fmt.Fprintf(&sb, "- **Sealed:** `%s`\n", name)
	}

	for _, s := range page.States {
		method := s.Method
		if method == "" {
			method = "ANY"
		}
		fmt.Fprintf(&sb, "\n## State %d: %s `%s`\n\n", s.ID, method, s.Action)
		if len(s.Parameters) == 0 {
			sb.WriteString("_No parameters._\n")
			continue
		}
		sb.WriteString("| Parameter | Kind | Values |\n|---|---|---|\n")
		for _, p := range s.Parameters {
			fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", p.Name, kind(p), values(p))
		}
	}
	return sb.String()
}

// PageList renders the page names of a scope.
func PageList(scope string, names []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Pages of `%s`\n\n", scope)
	if len(names) == 0 {
		sb.WriteString("_No live pages._\n")
		return sb.String()
	}
	for _, n := range names {
		fmt.Fprintf(&sb, "- `%s`\n", n)
	}
	return sb.String()
}

func kind(p *domain.Parameter) string {
	switch {
	case p.Editable && p.EditableType != "":
		return "editable (" + p.EditableType + ")"
	case p.Editable:
		return "editable"
	case p.ActionParam:
		return "query"
	}
	return "field"
}

func values(p *domain.Parameter) string {
	if p.Editable {
		return "-"
	}
	out := make([]string, len(p.Values))
	for i, v := range p.Values {
		out[i] = fmt.Sprintf("%d=`%s`", i, strings.ReplaceAll(v, "|", "\\|"))
	}
	return strings.Join(out, ", ")
}
