// Package vehicles serves year/make/model option lists and VIN decodes as
// small JSON endpoints for browser-side cascading selects.
//
// Three GET/HEAD routes are mounted under the component path: makes?year=,
// models?year=&make= and decode?vin=. Every response has the shape
// {"data":[{"value":...,"label":...}]}. Catalog failures degrade to an
// empty data array; malformed parameters answer 400.
package vehicles
