package vanilla

// ChromeClass is a typed identifier for the structural CSS classes.
type ChromeClass string

const (
	ClassForm     ChromeClass = "autoquote-form"
	ClassHeader   ChromeClass = "autoquote-header"
	ClassSection  ChromeClass = "autoquote-section"
	ClassFieldset ChromeClass = "autoquote-fieldset"
	ClassActions  ChromeClass = "autoquote-actions"
	ClassErrors   ChromeClass = "autoquote-errors"
	ClassGrid     ChromeClass = "autoquote-grid"
)

// ChromeClasses overrides the class applied to each structural element.
// Empty entries keep the default.
type ChromeClasses struct {
	Form     string
	Header   string
	Section  string
	Fieldset string
	Actions  string
	Errors   string
	Grid     string
}

func (c ChromeClasses) resolve() map[string]string {
	pick := func(override string, fallback ChromeClass) string {
		if cleaned := sanitizeClassList(override); cleaned != "" {
			return cleaned
		}
		return string(fallback)
	}
	return map[string]string{
		"form":     pick(c.Form, ClassForm),
		"header":   pick(c.Header, ClassHeader),
		"section":  pick(c.Section, ClassSection),
		"fieldset": pick(c.Fieldset, ClassFieldset),
		"actions":  pick(c.Actions, ClassActions),
		"errors":   pick(c.Errors, ClassErrors),
		"grid":     pick(c.Grid, ClassGrid),
	}
}
