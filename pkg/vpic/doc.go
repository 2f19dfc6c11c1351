// Package vpic is a small read-only client for the NHTSA vPIC vehicle catalog.
//
// The client lists makes for a model year, models for a make and model year,
// and decodes 17-character VINs into year/make/model. It never writes to the
// catalog and treats a response without a Results list as an empty result.
package vpic
