package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/boards/internal/storage"
)

const storageScopeName = "github.com/steveyegge/boards/storage"

// InstrumentedStore wraps a storage.Store with OTel tracing and metrics.
// Every call gets a span and is counted in bb.storage.* metrics; calls made
// inside a transaction become child spans of the transaction's span.
type InstrumentedStore struct {
	inner storage.Store
	inst  *instruments
}

type instruments struct {
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStore(s storage.Store) storage.Store {
	if !Enabled() {
		return s
	}
	return NewInstrumentedStore(s, Tracer(storageScopeName), Meter(storageScopeName))
}

// NewInstrumentedStore decorates s using the given tracer and meter
// regardless of BB_OTEL_ENABLED.
func NewInstrumentedStore(s storage.Store, tracer trace.Tracer, m metric.Meter) *InstrumentedStore {
	ops, _ := m.Int64Counter("bb.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("bb.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("bb.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	return &InstrumentedStore{
		inner: s,
		inst:  &instruments{tracer: tracer, ops: ops, dur: dur, errs: errs},
	}
}

func (in *instruments) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now(), all
}

// done ends the span and records duration and error. A not-found Get is a
// normal outcome and is not counted as an error.
func (in *instruments) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Microseconds()) / 1000
	in.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func tableAttr(t storage.Table) attribute.KeyValue {
	return attribute.String("bb.table", string(t))
}

func tablesAttr(tables []storage.Table) attribute.KeyValue {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = string(t)
	}
	return attribute.StringSlice("bb.tables", names)
}

func (s *InstrumentedStore) Get(ctx context.Context, table storage.Table, id string) ([]byte, error) {
	return instrumentedGet(ctx, s.inst, s.inner, table, id)
}

func (s *InstrumentedStore) Query(ctx context.Context, table storage.Table, where storage.Where) ([][]byte, error) {
	return instrumentedQuery(ctx, s.inst, s.inner, table, where)
}

func (s *InstrumentedStore) All(ctx context.Context, table storage.Table) ([][]byte, error) {
	return instrumentedAll(ctx, s.inst, s.inner, table)
}

func (s *InstrumentedStore) Put(ctx context.Context, table storage.Table, id string, doc []byte) error {
	return instrumentedPut(ctx, s.inst, s.inner, table, id, doc)
}

func (s *InstrumentedStore) Delete(ctx context.Context, table storage.Table, id string) error {
	return instrumentedDelete(ctx, s.inst, s.inner, table, id)
}

func (s *InstrumentedStore) Clear(ctx context.Context, table storage.Table) error {
	return instrumentedClear(ctx, s.inst, s.inner, table)
}

func (s *InstrumentedStore) RunInTransaction(ctx context.Context, tables []storage.Table, fn func(tx storage.Transaction) error) error {
	ctx, span, t, attrs := s.inst.op(ctx, "RunInTransaction", tablesAttr(tables))
	err := s.inner.RunInTransaction(ctx, tables, func(tx storage.Transaction) error {
		return fn(&instrumentedTx{inner: tx, inst: s.inst})
	})
	s.inst.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) View(ctx context.Context, tables []storage.Table, fn func(r storage.Reader) error) error {
	ctx, span, t, attrs := s.inst.op(ctx, "View", tablesAttr(tables))
	err := s.inner.View(ctx, tables, func(r storage.Reader) error {
		return fn(&instrumentedTx{inner: readOnly{r}, inst: s.inst})
	})
	s.inst.done(ctx, span, t, err, attrs)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

// instrumentedTx decorates a transaction (or a View reader) the same way.
type instrumentedTx struct {
	inner storage.Transaction
	inst  *instruments
}

func (tx *instrumentedTx) Get(ctx context.Context, table storage.Table, id string) ([]byte, error) {
	return instrumentedGet(ctx, tx.inst, tx.inner, table, id)
}

func (tx *instrumentedTx) Query(ctx context.Context, table storage.Table, where storage.Where) ([][]byte, error) {
	return instrumentedQuery(ctx, tx.inst, tx.inner, table, where)
}

func (tx *instrumentedTx) All(ctx context.Context, table storage.Table) ([][]byte, error) {
	return instrumentedAll(ctx, tx.inst, tx.inner, table)
}

func (tx *instrumentedTx) Put(ctx context.Context, table storage.Table, id string, doc []byte) error {
	return instrumentedPut(ctx, tx.inst, tx.inner, table, id, doc)
}

func (tx *instrumentedTx) Delete(ctx context.Context, table storage.Table, id string) error {
	return instrumentedDelete(ctx, tx.inst, tx.inner, table, id)
}

func (tx *instrumentedTx) Clear(ctx context.Context, table storage.Table) error {
	return instrumentedClear(ctx, tx.inst, tx.inner, table)
}

// readOnly lets a View reader travel through instrumentedTx. Its write
// methods are unreachable because View hands callers a storage.Reader.
type readOnly struct {
	storage.Reader
}

func (readOnly) Put(context.Context, storage.Table, string, []byte) error { return errReadOnly }
func (readOnly) Delete(context.Context, storage.Table, string) error     { return errReadOnly }
func (readOnly) Clear(context.Context, storage.Table) error              { return errReadOnly }

var errReadOnly = errors.New("write inside a read-only view")

func instrumentedGet(ctx context.Context, in *instruments, r storage.Reader, table storage.Table, id string) ([]byte, error) {
	ctx, span, t, attrs := in.op(ctx, "Get", tableAttr(table))
	doc, err := r.Get(ctx, table, id)
	in.done(ctx, span, t, err, attrs)
	return doc, err
}

func instrumentedQuery(ctx context.Context, in *instruments, r storage.Reader, table storage.Table, where storage.Where) ([][]byte, error) {
	ctx, span, t, attrs := in.op(ctx, "Query", tableAttr(table), attribute.Int("bb.conditions", len(where)))
	docs, err := r.Query(ctx, table, where)
	span.SetAttributes(attribute.Int("bb.rows", len(docs)))
	in.done(ctx, span, t, err, attrs)
	return docs, err
}

func instrumentedAll(ctx context.Context, in *instruments, r storage.Reader, table storage.Table) ([][]byte, error) {
	ctx, span, t, attrs := in.op(ctx, "All", tableAttr(table))
	docs, err := r.All(ctx, table)
	span.SetAttributes(attribute.Int("bb.rows", len(docs)))
	in.done(ctx, span, t, err, attrs)
	return docs, err
}

func instrumentedPut(ctx context.Context, in *instruments, w storage.Writer, table storage.Table, id string, doc []byte) error {
	ctx, span, t, attrs := in.op(ctx, "Put", tableAttr(table))
	err := w.Put(ctx, table, id, doc)
	in.done(ctx, span, t, err, attrs)
	return err
}

func instrumentedDelete(ctx context.Context, in *instruments, w storage.Writer, table storage.Table, id string) error {
	ctx, span, t, attrs := in.op(ctx, "Delete", tableAttr(table))
	err := w.Delete(ctx, table, id)
	in.done(ctx, span, t, err, attrs)
	return err
}

func instrumentedClear(ctx context.Context, in *instruments, w storage.Writer, table storage.Table) error {
	ctx, span, t, attrs := in.op(ctx, "Clear", tableAttr(table))
	err := w.Clear(ctx, table)
	in.done(ctx, span, t, err, attrs)
	return err
}
