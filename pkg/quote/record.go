// Package quote holds the aggregate record a quote wizard builds up one step
// at a time.
package quote

import (
	"fmt"
)

// Sections of the record, one per data-bearing wizard step.
const (
	SectionPersonal  = "personal"
	SectionVehicles  = "vehicles"
	SectionDrivers   = "drivers"
	SectionInsurance = "insurance"
	SectionReview    = "review"
)

// Record is the aggregate built across steps. Each step replaces its own
// section; sections are never checked against each other.
type Record struct {
	Personal  Personal  `json:"personal"`
	Vehicles  []Vehicle `json:"vehicles"`
	Drivers   []Driver  `json:"drivers"`
	Insurance Insurance `json:"insurance"`
}

type Personal struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	DOB       string `json:"dob"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

// Vehicle is one insured vehicle. Model only makes sense for the make, and
// make for the year, that produced it.
type Vehicle struct {
	VIN     string `json:"vin,omitempty"`
	Year    int    `json:"year"`
	Make    string `json:"make"`
	Model   string `json:"model"`
	Mileage int    `json:"mileage,omitempty"`
}

type Driver struct {
	First      string `json:"first"`
	Last       string `json:"last"`
	DOB        string `json:"dob"`
	License    string `json:"license,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Marital    string `json:"marital,omitempty"`
	Violations int    `json:"violations,omitempty"`
	Course     bool   `json:"course,omitempty"`
}

type Insurance struct {
	Limits          string     `json:"limits"`
	Company         string     `json:"company"`
	TimeWithCompany string     `json:"time_with_company"`
	Premium         float64    `json:"premium"`
	Frequency       string     `json:"frequency"`
	Coverages       []Coverage `json:"coverages"`
}

// Coverage is the coverage requested for the vehicle at the same index.
type Coverage struct {
	Type       string `json:"type"`
	Deductible int    `json:"deductible"`
}

// Merge replaces section with the values a step submitted. values is the
// nested form produced by the wizard (lists under "vehicles", "drivers" and
// "coverages").
func (r *Record) Merge(section string, values map[string]any) error {
	switch section {
	case SectionPersonal:
		r.Personal = DecodePersonal(values)
	case SectionVehicles:
		r.Vehicles = DecodeVehicles(values[SectionVehicles])
	case SectionDrivers:
		r.Drivers = DecodeDrivers(values[SectionDrivers])
	case SectionInsurance:
		r.Insurance = DecodeInsurance(values)
	case SectionReview:
	default:
		return fmt.Errorf("quote: unknown section %q", section)
	}
	return nil
}

// Map returns the record as nested maps and slices keyed by JSON field name.
// Optional fields left empty are omitted.
func (r Record) Map() map[string]any {
	vehicles := make([]any, 0, len(r.Vehicles))
	for _, v := range r.Vehicles {
		vehicles = append(vehicles, v.Map())
	}
	drivers := make([]any, 0, len(r.Drivers))
	for _, d := range r.Drivers {
		drivers = append(drivers, d.Map())
	}
	return map[string]any{
		SectionPersonal:  r.Personal.Map(),
		SectionVehicles:  vehicles,
		SectionDrivers:   drivers,
		SectionInsurance: r.Insurance.Map(),
	}
}

func (p Personal) Map() map[string]any {
	return map[string]any{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"email":      p.Email,
		"phone":      p.Phone,
		"dob":        p.DOB,
		"address":    p.Address,
		"city":       p.City,
		"state":      p.State,
		"zip":        p.Zip,
	}
}

func (v Vehicle) Map() map[string]any {
	out := map[string]any{
		"year":  v.Year,
		"make":  v.Make,
		"model": v.Model,
	}
	if v.VIN != "" {
		out["vin"] = v.VIN
	}
	if v.Mileage > 0 {
		out["mileage"] = v.Mileage
	}
	return out
}

func (d Driver) Map() map[string]any {
	out := map[string]any{
		"first": d.First,
		"last":  d.Last,
		"dob":   d.DOB,
	}
	if d.License != "" {
		out["license"] = d.License
	}
	if d.Gender != "" {
		out["gender"] = d.Gender
	}
	if d.Marital != "" {
		out["marital"] = d.Marital
	}
	if d.Violations > 0 {
		out["violations"] = d.Violations
	}
	if d.Course {
		out["course"] = true
	}
	return out
}

func (i Insurance) Map() map[string]any {
	coverages := make([]any, 0, len(i.Coverages))
	for _, c := range i.Coverages {
		coverages = append(coverages, map[string]any{
			"type":       c.Type,
			"deductible": c.Deductible,
		})
	}
	return map[string]any{
		"limits":            i.Limits,
		"company":           i.Company,
		"time_with_company": i.TimeWithCompany,
		"premium":           i.Premium,
		"frequency":         i.Frequency,
		"coverages":         coverages,
	}
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	out.Vehicles = append([]Vehicle(nil), r.Vehicles...)
	out.Drivers = append([]Driver(nil), r.Drivers...)
	out.Insurance.Coverages = append([]Coverage(nil), r.Insurance.Coverages...)
	return out
}

// PrimaryDriver seeds the first driver from the personal section.
func (r Record) PrimaryDriver() Driver {
	return Driver{
		First: r.Personal.FirstName,
		Last:  r.Personal.LastName,
		DOB:   r.Personal.DOB,
	}
}
