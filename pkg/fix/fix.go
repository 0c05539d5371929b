package fix

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/wphttp/internal/utils"
	"github.com/sw33tLie/wphttp/pkg/match"
	"github.com/sw33tLie/wphttp/pkg/scan"
	"github.com/sw33tLie/wphttp/pkg/shape"
	"github.com/sw33tLie/wphttp/pkg/storage"
)

// Change is one planned rewrite, handed to Options.Preview.
type Change struct {
	Kind   scan.Kind
	Record string
	Before string
	After  string
}

type Options struct {
	// DryRun does all reads and rewrites in memory and writes nothing.
	// Records that would be written are counted as Fixed.
	DryRun  bool
	Preview func(Change)
}

// Replacer rewrites matches record by record. A failing record never stops
// the others.
type Replacer struct {
	store storage.RecordStore
	opts  Options
	log   *logrus.Entry
}

func New(store storage.RecordStore, opts Options) *Replacer {
	return &Replacer{
		store: store,
		opts:  opts,
		log:   utils.Log.WithField("run", uuid.NewString()),
	}
}

// record is one addressable field. plain values are rewritten as text,
// others through their decoded shape.
type record struct {
	kind  scan.Kind
	label string
	plain bool
	read  func(ctx context.Context) (string, error)
	write func(ctx context.Context, value string, previous *string) error
}

func fieldRecord(store storage.RecordStore, kind scan.Kind, label string, table storage.Table, id storage.RecordID, column string) record {
	return record{
		kind:  kind,
		label: label,
		plain: kind == scan.KindContent || kind == scan.KindCustom,
		read: func(ctx context.Context) (string, error) {
			return store.GetField(ctx, table, id, column)
		},
		write: func(ctx context.Context, value string, previous *string) error {
			return store.UpdateField(ctx, storage.FieldUpdate{Table: table, ID: id, Column: column, Value: value, Previous: previous})
		},
	}
}

func optionRecord(store storage.RecordStore, kind scan.Kind, name string) record {
	return record{
		kind:  kind,
		label: name,
		read: func(ctx context.Context) (string, error) {
			return store.GetSerializedValue(ctx, name)
		},
		write: func(ctx context.Context, value string, previous *string) error {
			return store.SetSerializedValue(ctx, name, value, previous)
		},
	}
}

func label(kind scan.Kind, row storage.Row) string {
	switch kind {
	case scan.KindOptions:
		return "option " + row.Key
	case scan.KindMeta, scan.KindOtherMeta:
		return fmt.Sprintf("meta %d (post %d, %s)", row.ID, row.PostID, row.Key)
	}
	return fmt.Sprintf("post %d", row.ID)
}

// ReplaceScope runs Replace for a kind name, or for every widget kind
// when scope is "widgets".
func (r *Replacer) ReplaceScope(ctx context.Context, scope, from, to string) (Outcome, error) {
	kinds := scan.WidgetKinds
	if scope != scan.ScopeWidgets {
		k, err := scan.ParseKind(scope)
		if err != nil {
			return Outcome{}, err
		}
		kinds = []scan.Kind{k}
	}
	var out Outcome
	for _, k := range kinds {
		o, err := r.Replace(ctx, k, from, to)
		out.merge(o)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// Replace rewrites every record of kind containing from. Only store
// failures are returned as errors; per-record problems land in the outcome.
func (r *Replacer) Replace(ctx context.Context, kind scan.Kind, from, to string) (Outcome, error) {
	var out Outcome
	if from == "" {
		return out, nil
	}
	log := r.log.WithField("kind", kind)

	if kind.IsWidget() {
		name := kind.OptionName()
		raw, err := r.store.GetSerializedValue(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("reading %s: %w", name, err)
		}
		if !match.Matches(raw, from) {
			return out, nil
		}
		err = r.apply(ctx, &out, optionRecord(r.store, kind, name), from, to)
		r.summarize(log, out)
		return out, err
	}

	q, ok := scan.PatternFor(kind, from)
	if !ok {
		return out, fmt.Errorf("cannot replace %s", kind)
	}
	rows, err := r.store.FindByPattern(ctx, q)
	if err != nil {
		return out, fmt.Errorf("finding %s candidates: %w", kind, err)
	}
	for _, row := range rows {
		rec := fieldRecord(r.store, kind, label(kind, row), q.Table, row.ID, q.Column)
		if err := r.apply(ctx, &out, rec, from, to); err != nil {
			r.summarize(log, out)
			return out, err
		}
	}
	r.summarize(log, out)
	return out, nil
}

// ReplacePost rewrites the content of a single post.
func (r *Replacer) ReplacePost(ctx context.Context, id storage.RecordID, from, to string) (Outcome, error) {
	var out Outcome
	rec := fieldRecord(r.store, scan.KindContent, fmt.Sprintf("post %d", id), storage.TablePosts, id, storage.ColumnPostContent)
	if _, err := rec.read(ctx); err != nil {
		return out, err
	}
	err := r.apply(ctx, &out, rec, from, to)
	r.summarize(r.log.WithField("post", id), out)
	return out, err
}

func (r *Replacer) summarize(log *logrus.Entry, out Outcome) {
	log.WithFields(logrus.Fields{
		"attempted":     out.Attempted,
		"fixed":         out.Fixed,
		"already_fixed": out.AlreadyFixed,
		"failed":        out.Failed,
		"dry_run":       r.opts.DryRun,
	}).Info("Replacement done")
}

// apply processes one record. The returned error is fatal to the batch.
func (r *Replacer) apply(ctx context.Context, out *Outcome, rec record, from, to string) error {
	out.Attempted++
	log := r.log.WithFields(logrus.Fields{"kind": rec.kind, "record": rec.label})

	before, err := rec.read(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		log.Debug("Record vanished before the rewrite")
		out.AlreadyFixed++
		return nil
	}
	if err != nil {
		out.Attempted--
		return fmt.Errorf("reading %s: %w", rec.label, err)
	}
	if !match.Matches(before, from) {
		log.Debug("Record already fixed")
		out.AlreadyFixed++
		return nil
	}

	after, err := rewrite(rec, before, from, to)
	if err != nil {
		log.WithError(err).Warn("Skipping record")
		out.fail(Failure{Kind: rec.kind, Record: rec.label, Reason: FailureUnparseable, Err: err})
		return nil
	}

	if r.opts.DryRun {
		if r.opts.Preview != nil {
			r.opts.Preview(Change{Kind: rec.kind, Record: rec.label, Before: before, After: after})
		}
		out.Fixed++
		return nil
	}

	err = rec.write(ctx, after, &before)
	switch {
	case err == nil:
		log.Debug("Record fixed")
		out.Fixed++
	case errors.Is(err, storage.ErrPrecondition), errors.Is(err, storage.ErrNotFound):
		log.WithError(err).Warn("Record changed while fixing it")
		out.fail(Failure{Kind: rec.kind, Record: rec.label, Reason: FailurePrecondition, Err: err})
	default:
		log.WithError(err).Warn("Could not write record")
		out.fail(Failure{Kind: rec.kind, Record: rec.label, Reason: FailureWrite, Err: err})
	}
	return nil
}

var errNoReplaceable = errors.New("match is not inside a replaceable string value")

func rewrite(rec record, before, from, to string) (string, error) {
	if rec.plain {
		return match.ReplaceAll(before, from, to), nil
	}
	after, err := shape.Replace(shape.Decode(before), from, to)
	if err != nil {
		return "", err
	}
	if after == before {
		return "", errNoReplaceable
	}
	return after, nil
}
