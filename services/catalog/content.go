package catalog

import (
	"context"
	"fmt"
	"strings"

	"moviemate/models"
)

// CreateParams is the input for a manual catalog entry, bypassing the
// importer entirely.
type CreateParams struct {
	Title    string
	Kind     models.ContentKind
	Platform string
	Status   models.WatchStatus
}

// UpdateParams carries the mutable user-facing fields of a content row.
// Nil pointers leave the current value untouched.
type UpdateParams struct {
	Status   *models.WatchStatus
	Platform *string
	Rating   *int
	Review   *string
}

// Create registers a manually entered content row for the owner.
func (s *Service) Create(ctx context.Context, ownerID string, params CreateParams) (*models.Content, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !params.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrValidation, params.Kind)
	}
	status := params.Status
	if status == "" {
		status = models.StatusWishlist
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	content := &models.Content{
		OwnerID:  ownerID,
		Title:    title,
		Kind:     params.Kind,
		Platform: strings.TrimSpace(params.Platform),
		Status:   status,
	}
	if err := s.store.CreateContent(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

// Get returns a single owned content row with its season and episode tree.
func (s *Service) Get(ctx context.Context, ownerID string, contentID int64) (*models.ContentDetail, error) {
	content, err := s.ownedContent(ctx, s.store, ownerID, contentID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, content)
}

// List returns all of the owner's content rows, newest first, each with its
// progress percentage but without the episode tree.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.ContentDetail, error) {
	contents, err := s.store.ListContents(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	details := make([]models.ContentDetail, 0, len(contents))
	for i := range contents {
		percent, err := s.ProgressPercent(ctx, &contents[i])
		if err != nil {
			return nil, err
		}
		details = append(details, models.ContentDetail{
			Content:         contents[i],
			ProgressPercent: percent,
		})
	}
	return details, nil
}

// Update patches the user-facing fields of an owned content row.
func (s *Service) Update(ctx context.Context, ownerID string, contentID int64, params UpdateParams) (*models.Content, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *params.Status)
	}
	if params.Rating != nil && (*params.Rating < 1 || *params.Rating > 10) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 10", ErrValidation)
	}

	var updated *models.Content
	err := s.store.WithTx(ctx, func(tx Store) error {
		content, err := s.ownedContent(ctx, tx, ownerID, contentID)
		if err != nil {
			return err
		}
		if params.Status != nil {
			content.Status = *params.Status
		}
		if params.Platform != nil {
			content.Platform = strings.TrimSpace(*params.Platform)
		}
		if params.Rating != nil {
			rating := *params.Rating
			content.Rating = &rating
		}
		if params.Review != nil {
			content.Review = *params.Review
		}
		if err := tx.UpdateContent(ctx, content); err != nil {
			return err
		}
		updated = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an owned content row along with its seasons and episodes.
func (s *Service) Delete(ctx context.Context, ownerID string, contentID int64) error {
	content, err := s.ownedContent(ctx, s.store, ownerID, contentID)
	if err != nil {
		return err
	}
	return s.store.DeleteContent(ctx, content.ID)
}

// detail assembles the full season/episode tree for one content row.
func (s *Service) detail(ctx context.Context, content *models.Content) (*models.ContentDetail, error) {
	out := &models.ContentDetail{Content: *content}

	if content.Kind == models.KindTV {
		seasons, err := s.store.ListSeasons(ctx, content.ID)
		if err != nil {
			return nil, err
		}
		out.Seasons = make([]models.SeasonDetail, 0, len(seasons))
		for _, season := range seasons {
			episodes, err := s.store.ListEpisodes(ctx, season.ID)
			if err != nil {
				return nil, err
			}
			out.Seasons = append(out.Seasons, models.SeasonDetail{
				Season:   season,
				Episodes: episodes,
			})
		}
	}

	percent, err := s.ProgressPercent(ctx, content)
	if err != nil {
		return nil, err
	}
	out.ProgressPercent = percent
	return out, nil
}
