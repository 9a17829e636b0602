package report

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateguard/pkg/domain"
)

// Mermaid produces a flowchart of pages, the States they issued and the actions
// those States target. AJAX extensions are drawn as dotted edges to their parent.
func Mermaid(pages []*domain.Page) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	actions := make(map[string]string)
	for _, page := range pages {
		pid := "page_" + sanitizeID(page.Name)
		fmt.Fprintf(&sb, "    %s[[\"page %s\"]]\n", pid, page.Name)
		if page.Parent != "" {
			fmt.Fprintf(&sb, "    %s -.-> page_%s\n", pid, sanitizeID(page.Parent))
		}

		for _, s := range page.States {
			sid := fmt.Sprintf("%s_s%d", pid, s.ID)
			fmt.Fprintf(&sb, "    %s((\"%d\"))\n", sid, s.ID)
			fmt.Fprintf(&sb, "    %s --> %s\n", pid, sid)

			aid, ok := actions[s.Action]
			if !ok {
				aid = fmt.Sprintf("action_%d", len(actions))
				actions[s.Action] = aid
				fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", aid, strings.ReplaceAll(s.Action, "\"", "'"))
			}
			if s.Method != "" {
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sid, s.Method, aid)
			} else {
				fmt.Fprintf(&sb, "    %s --> %s\n", sid, aid)
			}
		}
	}
	return sb.String()
}

func sanitizeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
