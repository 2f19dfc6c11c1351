package cascade

// State is the lifecycle of a dependent control.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateNoData  State = "nodata"
)

const (
	FieldYear  = "year"
	FieldMake  = "make"
	FieldModel = "model"
)

// Control is the renderable state of one choice control.
type Control struct {
	Name        string   `json:"name"`
	State       State    `json:"state"`
	Disabled    bool     `json:"disabled"`
	Placeholder string   `json:"placeholder"`
	Options     []string `json:"options"`
	Value       string   `json:"value,omitempty"`
}

// Snapshot is a consistent copy of the three controls.
type Snapshot struct {
	Year  Control `json:"year"`
	Make  Control `json:"make"`
	Model Control `json:"model"`
}

// Initial is the snapshot of an untouched selector offering years.
func Initial(years []int) Snapshot {
	return Snapshot{
		Year: Control{
			Name:        FieldYear,
			State:       StateReady,
			Placeholder: placeholderFor(FieldYear, StateReady),
			Options:     yearStrings(years),
		},
		Make:  emptyControl(FieldMake),
		Model: emptyControl(FieldModel),
	}
}

func (c Control) clone() Control {
	out := c
	out.Options = append([]string{}, c.Options...)
	return out
}

func emptyControl(name string) Control {
	return Control{
		Name:        name,
		State:       StateEmpty,
		Disabled:    true,
		Placeholder: placeholderFor(name, StateEmpty),
		Options:     []string{},
	}
}

func loadingControl(name string) Control {
	c := emptyControl(name)
	c.State = StateLoading
	c.Placeholder = placeholderFor(name, StateLoading)
	return c
}

func noDataControl(name string) Control {
	c := emptyControl(name)
	c.State = StateNoData
	c.Placeholder = placeholderFor(name, StateNoData)
	return c
}

// readyControl enables the control unless names is empty, in which case it
// reports no data.
func readyControl(name string, names []string) Control {
	if len(names) == 0 {
		return noDataControl(name)
	}
	return Control{
		Name:        name,
		State:       StateReady,
		Placeholder: placeholderFor(name, StateReady),
		Options:     append([]string{}, names...),
	}
}

func placeholderFor(name string, state State) string {
	switch state {
	case StateLoading:
		return "Loading..."
	case StateNoData:
		return "No data"
	}
	switch name {
	case FieldYear:
		return "Select Year"
	case FieldMake:
		return "Select Make"
	case FieldModel:
		return "Select Model"
	}
	return "Select"
}
