package process

import (
	"context"
	"errors"
	"fmt"
)

// Cleanup removes everything derived from a piece of content: its vectors,
// its queue items, and finally the source row itself. The three steps are
// independent; a failure in one is recorded but does not stop the others,
// and the combined error (if any) is returned at the end.
func (p *Pipeline) Cleanup(ctx context.Context, ct ContentType, contentID string) error {
	var errs []error

	ids, rowErr := p.vectorIDsFor(ctx, ct, contentID)
	if rowErr != nil {
		errs = append(errs, fmt.Errorf("look up %s %s: %w", ct, contentID, rowErr))
	} else if len(ids) > 0 {
		if err := p.vectors.DeleteMany(ctx, ids); err != nil {
			errs = append(errs, fmt.Errorf("delete vectors: %w", err))
		}
	}

	if p.queue != nil {
		if err := p.queue.DeleteForContent(ctx, string(ct), contentID); err != nil {
			errs = append(errs, fmt.Errorf("delete queue items: %w", err))
		}
	}

	if err := p.deleteRow(ctx, ct, contentID); err != nil {
		errs = append(errs, fmt.Errorf("delete row: %w", err))
	}

	return errors.Join(errs...)
}

func (p *Pipeline) vectorIDsFor(ctx context.Context, ct ContentType, id string) ([]string, error) {
	switch ct {
	case TypeDocument:
		doc, err := p.store.GetDocument(ctx, id)
		if err != nil || doc == nil {
			return nil, err
		}
		return doc.VectorIDs, nil
	case TypeFigure:
		fig, err := p.store.GetFigure(ctx, id)
		if err != nil || fig == nil {
			return nil, err
		}
		return fig.VectorIDs, nil
	case TypeChalkTalk:
		talk, err := p.store.GetChalkTalk(ctx, id)
		if err != nil || talk == nil {
			return nil, err
		}
		return talk.VectorIDs, nil
	case TypeResearcher:
		prof, err := p.store.GetProfile(ctx, id)
		if err != nil || prof == nil {
			return nil, err
		}
		return prof.VectorIDs, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", ct)
	}
}

func (p *Pipeline) deleteRow(ctx context.Context, ct ContentType, id string) error {
	switch ct {
	case TypeDocument:
		return p.store.DeleteDocument(ctx, id)
	case TypeFigure:
		return p.store.DeleteFigure(ctx, id)
	case TypeChalkTalk:
		return p.store.DeleteChalkTalk(ctx, id)
	case TypeResearcher:
		return p.store.DeleteProfile(ctx, id)
	default:
		return fmt.Errorf("unknown content type %q", ct)
	}
}
