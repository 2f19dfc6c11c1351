package submit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-autoquote/pkg/flatten"
	"github.com/goliatone/go-autoquote/pkg/quote"
)

// Submission is a quote ready to be posted: the flat key/value pairs and the
// form carrying them as hidden inputs.
type Submission struct {
	Flat map[string]string
	Form Form
}

// Submitter flattens completed records into the backend form.
type Submitter struct {
	form      Form
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Submitter)

func WithPublisher(publisher Publisher) Option {
	return func(s *Submitter) {
		s.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSubmitter(form Form, options ...Option) *Submitter {
	s := &Submitter{
		form:   form,
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Form returns the target form as configured, before materialization.
func (s *Submitter) Form() Form { return s.form }

// Submit flattens record and materializes it onto the form. The publisher,
// if any, is notified; its failures are logged and do not fail the submit.
func (s *Submitter) Submit(ctx context.Context, record quote.Record) (Submission, error) {
	flat, err := flatten.Flatten(record.Map(), "")
	if err != nil {
		return Submission{}, fmt.Errorf("submit: %w", err)
	}
	values := flatten.Strings(flat)
	sub := Submission{
		Flat: values,
		Form: Materialize(s.form, values),
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, values); err != nil {
			s.logger.Warn("submit: publish failed", "error", err)
		}
	}
	s.logger.Info("submit: quote flattened", "fields", len(values), "action", s.form.Action)
	return sub, nil
}
