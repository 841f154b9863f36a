package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
)

// ParseLimit reads a user-entered monthly limit. Anything that is not a
// non-negative number means no limit.
func ParseLimit(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Categories live on this device only; they are not part of the family record.
func (s *Store) AddCategory(name string, limit decimal.Decimal) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, s.reject(fmt.Errorf("%w: name", ErrMissingField))
	}
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	c := model.Category{
		ID:    s.nextLocalID(),
		Name:  name,
		Limit: limit,
		Color: model.CategoryPalette[s.pick(len(model.CategoryPalette))],
	}
	if _, err := s.commit(partCategories, func(st State) (State, error) {
		st.Categories = append(append(make([]model.Category, 0, len(st.Categories)+1), st.Categories...), c)
		return st, nil
	}); err != nil {
		return model.Category{}, err
	}
	s.notifier.Notify(model.NotifySuccess, "Category added")
	return c, nil
}

// EditCategoryLimit sets a category's limit from raw user input; see ParseLimit.
func (s *Store) EditCategoryLimit(id, raw string) (model.Category, error) {
	limit := ParseLimit(raw)
	var updated model.Category
	if _, err := s.commit(partCategories, func(st State) (State, error) {
		i, ok := st.findCategory(id)
		if !ok {
			return st, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		updated = st.Categories[i]
		updated.Limit = limit
		st.Categories = replaced(st.Categories, i, updated)
		return st, nil
	}); err != nil {
		return model.Category{}, s.reject(err)
	}
	s.notifier.Notify(model.NotifySuccess, "Category limit updated")
	return updated, nil
}

// DeleteCategory removes the category. Transactions keep their category name.
func (s *Store) DeleteCategory(id string) error {
	if _, err := s.commit(partCategories, func(st State) (State, error) {
		i, ok := st.findCategory(id)
		if !ok {
			return st, fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		st.Categories = without(st.Categories, i)
		return st, nil
	}); err != nil {
		return s.reject(err)
	}
	s.notifier.Notify(model.NotifySuccess, "Category deleted")
	return nil
}
