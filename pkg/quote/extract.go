package quote

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodePersonal reads the personal section from submitted values. Free text
// is sanitized.
func DecodePersonal(values map[string]any) Personal {
	return Personal{
		FirstName: text(values, "first_name"),
		LastName:  text(values, "last_name"),
		Email:     text(values, "email"),
		Phone:     text(values, "phone"),
		DOB:       text(values, "dob"),
		Address:   text(values, "address"),
		City:      text(values, "city"),
		State:     text(values, "state"),
		Zip:       text(values, "zip"),
	}
}

// DecodeVehicles reads a list of vehicle entries. Entries that are not maps
// decode as empty vehicles so indexes stay aligned with the form.
func DecodeVehicles(raw any) []Vehicle {
	items := list(raw)
	out := make([]Vehicle, 0, len(items))
	for _, item := range items {
		values, _ := item.(map[string]any)
		out = append(out, Vehicle{
			VIN:     strings.ToUpper(text(values, "vin")),
			Year:    integer(values, "year"),
			Make:    text(values, "make"),
			Model:   text(values, "model"),
			Mileage: integer(values, "mileage"),
		})
	}
	return out
}

func DecodeDrivers(raw any) []Driver {
	items := list(raw)
	out := make([]Driver, 0, len(items))
	for _, item := range items {
		values, _ := item.(map[string]any)
		out = append(out, Driver{
			First:      text(values, "first"),
			Last:       text(values, "last"),
			DOB:        text(values, "dob"),
			License:    text(values, "license"),
			Gender:     text(values, "gender"),
			Marital:    text(values, "marital"),
			Violations: integer(values, "violations"),
			Course:     boolean(values, "course"),
		})
	}
	return out
}

func DecodeInsurance(values map[string]any) Insurance {
	items := list(values["coverages"])
	coverages := make([]Coverage, 0, len(items))
	for _, item := range items {
		entry, _ := item.(map[string]any)
		coverages = append(coverages, Coverage{
			Type:       text(entry, "type"),
			Deductible: integer(entry, "deductible"),
		})
	}
	return Insurance{
		Limits:          text(values, "limits"),
		Company:         text(values, "company"),
		TimeWithCompany: text(values, "time_with_company"),
		Premium:         number(values, "premium"),
		Frequency:       text(values, "frequency"),
		Coverages:       coverages,
	}
}

func list(raw any) []any {
	switch typed := raw.(type) {
	case []any:
		return typed
	case []map[string]any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, item)
		}
		return out
	}
	return nil
}

func text(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok || raw == nil {
		return ""
	}
	switch typed := raw.(type) {
	case string:
		return Sanitize(typed)
	case []string:
		if len(typed) == 0 {
			return ""
		}
		return Sanitize(typed[0])
	}
	return Sanitize(fmt.Sprint(raw))
}

func integer(values map[string]any, key string) int {
	switch typed := values[key].(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		if typed == math.Trunc(typed) {
			return int(typed)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil {
			return n
		}
	}
	return 0
}

func number(values map[string]any, key string) float64 {
	switch typed := values[key].(type) {
	case float64:
		return typed
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64); err == nil {
			return f
		}
	}
	return 0
}

func boolean(values map[string]any, key string) bool {
	switch typed := values[key].(type) {
	case bool:
		return typed
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}
