package library

import (
	"context"
	"fmt"

	"stoneware/internal/book"
	"stoneware/internal/logging"
)

// RateOutcome reports what a rating call did.
type RateOutcome struct {
	Record book.Record `json:"record"`
	// Shelf holds the book after rating; empty for an ephemeral rating.
	Shelf  book.Shelf `json:"shelf,omitempty"`
	Rating float64    `json:"rating"`
	// Filed is set when the rating moved the book onto "finished".
	Filed bool `json:"filed"`
	// Ephemeral is set when the rating is held in memory only.
	Ephemeral bool `json:"ephemeral"`
}

// Rate applies a personal rating to the book with id. The value is quantized
// to a quarter step and zero clears the rating. A shelved book is updated in
// place; an unshelved one follows RateResult.
func (s *Service) Rate(ctx context.Context, id string, value float64) (RateOutcome, error) {
	rating := book.Quantize(value)
	saved, where, found, err := s.rateInPlace(ctx, id, rating)
	if err != nil {
		return RateOutcome{}, err
	}
	if found {
		return RateOutcome{Record: saved, Shelf: where, Rating: rating}, nil
	}
	return s.RateResult(ctx, id, value)
}

// RateResult applies a rating given to a search result. With auto-file
// enabled the book is filed on "finished", moving it off any other shelf.
// Without it, a shelved book is updated in place and an unshelved book keeps
// the rating in memory until it is added to a shelf.
func (s *Service) RateResult(ctx context.Context, id string, value float64) (RateOutcome, error) {
	rating := book.Quantize(value)
	if rating == 0 {
		return s.clearRating(ctx, id)
	}

	if !s.autoFile {
		saved, where, found, err := s.rateInPlace(ctx, id, rating)
		if err != nil {
			return RateOutcome{}, err
		}
		if found {
			return RateOutcome{Record: saved, Shelf: where, Rating: rating}, nil
		}
		rec, _, _, err := s.resolve(ctx, id)
		if err != nil {
			return RateOutcome{}, fmt.Errorf("rate: %w", err)
		}
		s.setEphemeral(rec.ID, rating)
		rec.Rating = rating
		s.logger.Debug("rating held until shelved",
			logging.String(logging.FieldBookID, rec.ID),
			logging.Float64("rating", rating),
		)
		return RateOutcome{Record: rec, Rating: rating, Ephemeral: true}, nil
	}

	rec, where, shelved, err := s.resolve(ctx, id)
	if err != nil {
		return RateOutcome{}, fmt.Errorf("rate: %w", err)
	}
	if s.community != nil {
		rec = s.community.Apply(ctx, rec)
	}
	rec.Rating = rating
	filed, err := s.file(ctx, rec, where, shelved, book.ShelfFinished)
	if err != nil {
		return RateOutcome{}, fmt.Errorf("rate %s: %w", id, err)
	}
	s.takeEphemeral(rec.ID)
	return RateOutcome{
		Record: filed,
		Shelf:  book.ShelfFinished,
		Rating: rating,
		Filed:  !shelved || where != book.ShelfFinished,
	}, nil
}

func (s *Service) rateInPlace(ctx context.Context, id string, rating float64) (book.Record, book.Shelf, bool, error) {
	saved, where, found, err := s.shelves.Modify(ctx, id, func(r *book.Record) {
		r.Rating = rating
	})
	if err != nil {
		return book.Record{}, "", false, fmt.Errorf("rate %s: %w", id, err)
	}
	if found {
		s.remember(saved)
	}
	return saved, where, found, nil
}

func (s *Service) clearRating(ctx context.Context, id string) (RateOutcome, error) {
	saved, where, found, err := s.rateInPlace(ctx, id, 0)
	if err != nil {
		return RateOutcome{}, err
	}
	s.takeEphemeral(id)
	if found {
		return RateOutcome{Record: saved, Shelf: where}, nil
	}
	rec, ok := s.recall(id)
	if !ok {
		rec = book.Record{ID: id}
	}
	rec.Rating = 0
	return RateOutcome{Record: rec, Ephemeral: true}, nil
}

func (s *Service) setEphemeral(id string, rating float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ephemeral[id] = rating
}

func (s *Service) ephemeralRating(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ephemeral[id]
}

func (s *Service) takeEphemeral(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rating := s.ephemeral[id]
	delete(s.ephemeral, id)
	return rating
}
