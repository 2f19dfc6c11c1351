package render

// RenderOptions carry per-request data that is not part of the view model.
type RenderOptions struct {
	// Action is where step forms post to. Empty means the current URL.
	Action string
	// BasePath prefixes the JSON endpoints the browser calls for cascading
	// selects and VIN autofill.
	BasePath string
	// Hidden is emitted as hidden inputs on every step form (CSRF tokens and
	// the like).
	Hidden map[string]string
}
