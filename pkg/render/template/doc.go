// Package template defines the seam between view renderers and the template
// engine that draws wizard screens.
package template
