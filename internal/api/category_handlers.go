package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/online-store/internal/domain/catalog"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

// CategoryNode is a category with its subcategories nested under it.
type CategoryNode struct {
	model.Category
	Children []*CategoryNode `json:"children"`
}

// updateCategoryRequest keeps parent_id raw so that an explicit null
// (make root) can be told apart from an absent field (keep parent).
type updateCategoryRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	ParentID    json.RawMessage `json:"parent_id"`
}

func (req updateCategoryRequest) toUpdate() (catalog.CategoryUpdate, error) {
	upd := catalog.CategoryUpdate{Name: req.Name, Description: req.Description}
	if len(req.ParentID) == 0 {
		return upd, nil
	}
	var parent uuid.NullUUID
	if err := json.Unmarshal(req.ParentID, &parent); err != nil {
		return upd, badRequest("invalid parent_id")
	}
	upd.ParentID = &parent
	return upd, nil
}

// ListCategories returns all categories
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// CategoryTree returns the categories as a forest of root nodes
func (h *Handlers) CategoryTree(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, buildTree(categories))
}

func buildTree(categories []model.Category) []*CategoryNode {
	nodes := make(map[uuid.UUID]*CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &CategoryNode{Category: c, Children: []*CategoryNode{}}
	}

	roots := []*CategoryNode{}
	for _, c := range categories {
		node := nodes[c.ID]
		parent, ok := nodes[c.ParentID.UUID]
		if c.IsRoot() || !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewCategory
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	upd, err := req.toUpdate()
	if err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, upd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory removes the category and its whole subtree
func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
