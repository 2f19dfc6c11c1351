package vanilla

import (
	"strings"

	"github.com/goliatone/go-autoquote/pkg/render"
	"github.com/goliatone/go-autoquote/pkg/submit"
)

// sanitizeClassList drops empty tokens and anything that looks like markup.
func sanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.ContainsAny(token, `<>"'=`) {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

func optionsData(options render.RenderOptions) map[string]any {
	base := strings.TrimRight(options.BasePath, "/")
	hidden := make([]map[string]string, 0, len(options.Hidden))
	for _, field := range submit.SortedHiddenFields(options.Hidden) {
		hidden = append(hidden, map[string]string{"name": field.Name, "value": field.Value})
	}
	return map[string]any{
		"action":    options.Action,
		"base_path": base,
		"hidden":    hidden,
	}
}
