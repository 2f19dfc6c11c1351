// Package cascade binds three dependent choice controls (year, make, model).
//
// Changing an upstream control invalidates every control below it and
// reloads the next one asynchronously. Each reload is tagged with a
// per-control generation; a response is applied only if its generation is
// still the latest, so a slow response for an abandoned year can never
// overwrite the options of the year the user picked afterwards.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotReady is returned when a control is disabled (loading, empty or
	// without data) and cannot take a value.
	ErrNotReady = errors.New("cascade: control is not ready")
	// ErrUnknownOption is returned when a value is not among the control's
	// options.
	ErrUnknownOption = errors.New("cascade: value is not an available option")
)

// DefaultMinYear is the oldest model year offered.
const DefaultMinYear = 1981

// Source lists the options of the dependent controls. *lookup.Cache
// satisfies it.
type Source interface {
	Makes(ctx context.Context, year int) ([]string, error)
	Models(ctx context.Context, makeName string, year int) ([]string, error)
}

type Selector struct {
	source   Source
	logger   *slog.Logger
	observer func(Snapshot)

	mu    sync.Mutex
	year  Control
	make  Control
	model Control

	yearValue int

	makeGen      uint64
	modelGen     uint64
	makePending  chan struct{}
	modelPending chan struct{}
}

type Option func(*Selector)

// WithYears sets the year options, newest first.
func WithYears(years []int) Option {
	return func(s *Selector) {
		s.year.Options = yearStrings(years)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change, outside the selector lock.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Selector) {
		s.observer = fn
	}
}

// New builds a selector whose year control offers the current year back to
// DefaultMinYear unless WithYears says otherwise.
func New(source Source, options ...Option) *Selector {
	s := &Selector{
		source: source,
		logger: slog.Default(),
	}
	initial := Initial(YearOptions(time.Now(), DefaultMinYear))
	s.year, s.make, s.model = initial.Year, initial.Make, initial.Model

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// YearOptions lists model years from now's year down to minYear inclusive.
func YearOptions(now time.Time, minYear int) []int {
	current := now.Year()
	if minYear <= 0 || minYear > current {
		minYear = current
	}
	years := make([]int, 0, current-minYear+1)
	for y := current; y >= minYear; y-- {
		years = append(years, y)
	}
	return years
}

// Snapshot returns a copy of the three controls.
func (s *Selector) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Selection reports the chosen values; zero values mean "not chosen".
func (s *Selector) Selection() (year int, makeName, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yearValue, s.make.Value, s.model.Value
}

// SelectYear chooses year, clears make and model, and starts loading makes.
// The returned channel closes once the make fetch settles or is superseded
// by a newer selection.
func (s *Selector) SelectYear(ctx context.Context, year int) (<-chan struct{}, error) {
	value := strconv.Itoa(year)

	s.mu.Lock()
	if _, ok := matchOption(s.year.Options, value); !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: year %d", ErrUnknownOption, year)
	}
	s.year.Value = value
	s.yearValue = year

	s.makeGen++
	gen := s.makeGen
	s.make = loadingControl(FieldMake)
	pending := s.supersede(&s.makePending)

	// A model is meaningless without a confirmed make.
	s.modelGen++
	s.model = emptyControl(FieldModel)
	s.supersedeIdle(&s.modelPending)

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	go s.loadMakes(ctx, gen, year, pending)
	return pending, nil
}

// SelectMake chooses makeName (matched case-insensitively against the loaded
// makes), clears the model and starts loading models.
func (s *Selector) SelectMake(ctx context.Context, makeName string) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.make.Disabled {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: make", ErrNotReady)
	}
	canonical, ok := matchOption(s.make.Options, makeName)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: make %q", ErrUnknownOption, makeName)
	}
	s.make.Value = canonical
	year := s.yearValue

	s.modelGen++
	gen := s.modelGen
	s.model = loadingControl(FieldModel)
	pending := s.supersede(&s.modelPending)

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	go s.loadModels(ctx, gen, canonical, year, pending)
	return pending, nil
}

// SelectModel chooses model from the loaded models. It never triggers a
// fetch.
func (s *Selector) SelectModel(model string) error {
	s.mu.Lock()
	if s.model.Disabled {
		s.mu.Unlock()
		return fmt.Errorf("%w: model", ErrNotReady)
	}
	canonical, ok := matchOption(s.model.Options, model)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: model %q", ErrUnknownOption, model)
	}
	s.model.Value = canonical
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// AwaitMake blocks until no make fetch is outstanding.
func (s *Selector) AwaitMake(ctx context.Context) error {
	return s.await(ctx, func() chan struct{} { return s.makePending })
}

// AwaitModel blocks until no model fetch is outstanding.
func (s *Selector) AwaitModel(ctx context.Context) error {
	return s.await(ctx, func() chan struct{} { return s.modelPending })
}

// Reset returns every control to its initial state and abandons pending
// fetches.
func (s *Selector) Reset() {
	s.mu.Lock()
	s.year.Value = ""
	s.yearValue = 0
	s.makeGen++
	s.modelGen++
	s.make = emptyControl(FieldMake)
	s.model = emptyControl(FieldModel)
	s.supersedeIdle(&s.makePending)
	s.supersedeIdle(&s.modelPending)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Selector) await(ctx context.Context, pending func() chan struct{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		s.mu.Lock()
		ch := pending()
		s.mu.Unlock()
		if ch == nil {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Selector) loadMakes(ctx context.Context, gen uint64, year int, done chan struct{}) {
	names, err := s.fetch(ctx, func(ctx context.Context) ([]string, error) {
		return s.source.Makes(ctx, year)
	})

	s.mu.Lock()
	if gen != s.makeGen {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "cascade: discarding stale makes", "year", year, "generation", gen)
		return
	}
	if err != nil {
		s.logger.DebugContext(ctx, "cascade: makes unavailable", "year", year, "error", err)
		s.make = noDataControl(FieldMake)
	} else {
		s.make = readyControl(FieldMake, names)
	}
	settled := s.settle(&s.makePending, done)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	if settled {
		close(done)
	}
}

func (s *Selector) loadModels(ctx context.Context, gen uint64, makeName string, year int, done chan struct{}) {
	names, err := s.fetch(ctx, func(ctx context.Context) ([]string, error) {
		return s.source.Models(ctx, makeName, year)
	})

	s.mu.Lock()
	if gen != s.modelGen {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "cascade: discarding stale models", "make", makeName, "year", year, "generation", gen)
		return
	}
	if err != nil {
		s.logger.DebugContext(ctx, "cascade: models unavailable", "make", makeName, "year", year, "error", err)
		s.model = noDataControl(FieldModel)
	} else {
		s.model = readyControl(FieldModel, names)
	}
	settled := s.settle(&s.modelPending, done)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	if settled {
		close(done)
	}
}

func (s *Selector) fetch(ctx context.Context, fn func(context.Context) ([]string, error)) ([]string, error) {
	if s.source == nil {
		return nil, errors.New("cascade: source is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx)
}

// supersede releases waiters of the previous fetch and installs a fresh
// pending channel. Must hold mu.
func (s *Selector) supersede(slot *chan struct{}) chan struct{} {
	if *slot != nil {
		close(*slot)
	}
	ch := make(chan struct{})
	*slot = ch
	return ch
}

// supersedeIdle releases waiters and leaves the control with nothing
// pending. Must hold mu.
func (s *Selector) supersedeIdle(slot *chan struct{}) {
	if *slot != nil {
		close(*slot)
		*slot = nil
	}
}

// settle clears the slot if done is still the current pending channel and
// reports whether the caller now owns closing done. Must hold mu.
func (s *Selector) settle(slot *chan struct{}, done chan struct{}) bool {
	if done == nil || *slot != done {
		return false
	}
	*slot = nil
	return true
}

func (s *Selector) snapshotLocked() Snapshot {
	return Snapshot{
		Year:  s.year.clone(),
		Make:  s.make.clone(),
		Model: s.model.clone(),
	}
}

func (s *Selector) notify(snap Snapshot) {
	if s.observer != nil {
		s.observer(snap)
	}
}

func matchOption(options []string, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, option := range options {
		if option == value {
			return option, true
		}
	}
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return option, true
		}
	}
	return "", false
}

func yearStrings(years []int) []string {
	out := make([]string, 0, len(years))
	for _, y := range years {
		out = append(out, strconv.Itoa(y))
	}
	return out
}
