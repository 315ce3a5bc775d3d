package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/domain/autocomplete"
	"devrank/pkg/observability"
)

// ErrProviderClosed is returned for text changes after Close.
var ErrProviderClosed = errors.New("autocomplete provider closed")

// SuggestionSink receives the sorted names of a delivered lookup.
type SuggestionSink func(field autocomplete.Field, names []string)

// AutocompleteOptions tunes lookups.
type AutocompleteOptions struct {
	Specs   map[autocomplete.Field]autocomplete.FieldSpec
	Limit   int
	Timeout time.Duration
}

// Lookup is the handle of one text change.
type Lookup struct {
	Field  autocomplete.Field
	Text   string
	Issued bool

	done      chan struct{}
	cancel    context.CancelFunc
	delivered bool
}

// Done is closed once the lookup has delivered, failed or been superseded.
func (l *Lookup) Done() <-chan struct{} {
	return l.done
}

// Delivered reports whether the lookup replaced the suggestion list. Only
// meaningful after Done is closed.
func (l *Lookup) Delivered() bool {
	select {
	case <-l.done:
		return l.delivered
	default:
		return false
	}
}

// Wait blocks until the lookup settles or ctx ends.
func (l *Lookup) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func settledLookup(field autocomplete.Field, text string) *Lookup {
	l := &Lookup{Field: field, Text: text, done: make(chan struct{})}
	close(l.done)
	return l
}

// AutocompleteProvider issues one lookup per accepted text change and hands
// sorted results to the sink. A newer change of the same field cancels the
// previous lookup, and a superseded lookup never delivers.
type AutocompleteProvider struct {
	session ports.GraphSession
	sink    SuggestionSink
	opts    AutocompleteOptions
	logger  *zap.Logger
	metrics observability.Recorder

	ctx      context.Context
	stop     context.CancelFunc
	mu       sync.Mutex
	inflight map[autocomplete.Field]*Lookup
	gens     map[autocomplete.Field]uint64
	closed   bool
	wg       sync.WaitGroup
}

// NewAutocompleteProvider creates a provider delivering into sink
func NewAutocompleteProvider(
	session ports.GraphSession,
	sink SuggestionSink,
	opts AutocompleteOptions,
	logger *zap.Logger,
	metrics observability.Recorder,
) *AutocompleteProvider {
	if opts.Specs == nil {
		opts.Specs = autocomplete.DefaultSpecs()
	}
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	ctx, stop := context.WithCancel(context.Background())
	return &AutocompleteProvider{
		session:  session,
		sink:     sink,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		ctx:      ctx,
		stop:     stop,
		inflight: make(map[autocomplete.Field]*Lookup),
		gens:     make(map[autocomplete.Field]uint64),
	}
}

// TextChanged reacts to new text in a field. Text below the field's threshold
// issues no request and delivers nothing; it still supersedes a lookup in
// flight. The lookup runs detached from ctx so it can outlive the request that
// triggered it.
func (p *AutocompleteProvider) TextChanged(ctx context.Context, field autocomplete.Field, text string) (*Lookup, error) {
	spec, ok := p.opts.Specs[field]
	if !ok {
		return nil, fmt.Errorf("unknown autocomplete field %q", field)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}

	if prev := p.inflight[field]; prev != nil {
		prev.cancel()
		delete(p.inflight, field)
	}
	p.gens[field]++

	if !spec.Accepts(text) {
		p.metrics.Lookup(string(field), observability.OutcomeSkipped, 0)
		return settledLookup(field, text), nil
	}

	lctx, cancel := context.WithCancel(p.ctx)
	l := &Lookup{
		Field:  field,
		Text:   text,
		Issued: true,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	p.inflight[field] = l
	p.wg.Add(1)
	go p.run(lctx, l, spec, p.gens[field])

	return l, nil
}

func (p *AutocompleteProvider) run(ctx context.Context, l *Lookup, spec autocomplete.FieldSpec, gen uint64) {
	defer p.wg.Done()
	defer close(l.done)
	defer l.cancel()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	params := map[string]interface{}{"term": l.Text}
	if p.opts.Limit > 0 {
		params["limit"] = p.opts.Limit
	}

	start := time.Now()
	records, err := p.session.Run(ctx, spec.LookupCypher(p.opts.Limit), params)
	if err != nil {
		if p.superseded(l.Field, gen) {
			p.metrics.Lookup(string(l.Field), observability.OutcomeSuperseded, time.Since(start))
			return
		}
		p.logger.Warn("Autocomplete lookup failed",
			zap.String("field", string(l.Field)),
			zap.String("text", l.Text),
			zap.Error(err),
		)
		p.metrics.Lookup(string(l.Field), observability.OutcomeFailure, time.Since(start))
		return
	}

	names := autocomplete.SortNames(namesOf(records))

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.gens[l.Field] != gen {
		p.metrics.Lookup(string(l.Field), observability.OutcomeSuperseded, time.Since(start))
		return
	}
	p.sink(l.Field, names)
	l.delivered = true
	if p.inflight[l.Field] == l {
		delete(p.inflight, l.Field)
	}
	p.metrics.Lookup(string(l.Field), observability.OutcomeSuccess, time.Since(start))
}

func (p *AutocompleteProvider) superseded(field autocomplete.Field, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.gens[field] != gen
}

// Close cancels every lookup in flight and waits for them to return.
func (p *AutocompleteProvider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stop()
	p.inflight = make(map[autocomplete.Field]*Lookup)
	p.mu.Unlock()

	p.wg.Wait()
}

// namesOf takes the first column of every record. Null names are skipped.
func namesOf(records []ports.Record) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		if len(r.Values) == 0 || r.Values[0] == nil {
			continue
		}
		switch v := r.Values[0].(type) {
		case string:
			names = append(names, v)
		default:
			names = append(names, fmt.Sprint(v))
		}
	}
	return names
}
