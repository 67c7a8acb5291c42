package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type NewCategory struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	ParentID    uuid.NullUUID `json:"parent_id"`
}

// CategoryUpdate is a partial update. A non-nil ParentID with Valid=false
// turns the category into a root.
type CategoryUpdate struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	ParentID    *uuid.NullUUID `json:"parent_id"`
}

func (s *Service) CreateCategory(ctx context.Context, in NewCategory) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	now := s.now()
	c := &model.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: in.Description,
		ParentID:    in.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if c.ParentID.Valid {
			if _, err := tx.GetCategory(ctx, c.ParentID.UUID); err != nil {
				return categoryErr(err)
			}
		}
		if _, err := tx.GetCategoryByName(ctx, c.Name); err == nil {
			return ErrCategoryExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return categoryErr(tx.InsertCategory(ctx, c))
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("component", "catalog").Str("category_id", c.ID.String()).Str("name", c.Name).Msg("category created")
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c *model.Category
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetCategory(ctx, id)
		return categoryErr(err)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, upd CategoryUpdate) (*model.Category, error) {
	var updated *model.Category
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return categoryErr(err)
		}

		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return ErrInvalidName
			}
			if name != c.Name {
				other, err := tx.GetCategoryByName(ctx, name)
				if err == nil && other.ID != c.ID {
					return ErrCategoryExists
				} else if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			c.Name = name
		}
		if upd.Description != nil {
			c.Description = *upd.Description
		}
		if upd.ParentID != nil {
			if upd.ParentID.Valid {
				if err := checkAncestry(ctx, tx, id, upd.ParentID.UUID); err != nil {
					return err
				}
			}
			c.ParentID = *upd.ParentID
		}

		c.UpdatedAt = s.now()
		if err := tx.UpdateCategory(ctx, c); err != nil {
			return categoryErr(err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// checkAncestry walks up from parentID and fails if it reaches id.
func checkAncestry(ctx context.Context, tx store.Tx, id, parentID uuid.UUID) error {
	seen := map[uuid.UUID]bool{}
	cur := parentID
	for {
		if cur == id {
			return ErrCategoryCycle
		}
		if seen[cur] {
			// existing data already loops; refuse to extend it
			return ErrCategoryCycle
		}
		seen[cur] = true

		c, err := tx.GetCategory(ctx, cur)
		if err != nil {
			return categoryErr(err)
		}
		if !c.ParentID.Valid {
			return nil
		}
		cur = c.ParentID.UUID
	}
}

// DeleteCategory removes the category and all of its descendants.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return categoryErr(tx.DeleteCategory(ctx, id))
	})
	if err != nil {
		return err
	}
	log.Info().Str("component", "catalog").Str("category_id", id.String()).Msg("category deleted")
	return nil
}
