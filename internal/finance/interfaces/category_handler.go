package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tTomeRr/Beam/internal/auth"
	"github.com/tTomeRr/Beam/internal/finance/domain"
	financeErrors "github.com/tTomeRr/Beam/internal/finance/errors"
)

type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, ownerID int64, name, icon, color string, parentID *int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id, ownerID int64) error
	ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error)
	GetCategoryTree(ctx context.Context, ownerID int64) ([]domain.CategoryTree, error)
	GetSubcategories(ctx context.Context, ownerID, parentID int64) ([]domain.Category, error)
}

type RespondJSONFunc func(w http.ResponseWriter, status int, payload interface{})
type RespondErrorFunc func(w http.ResponseWriter, status int, message string, errors ...[]string)

type CategoryHandler struct {
	service      CategoryServiceInterface
	respondJSON  RespondJSONFunc
	respondError RespondErrorFunc
	logger       *slog.Logger
}

func NewCategoryHandler(
	service CategoryServiceInterface,
	respondJSON RespondJSONFunc,
	respondError RespondErrorFunc,
	logger *slog.Logger,
) *CategoryHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
		logger:       logger.With("component", "category_handler"),
	}
}

type createCategoryRequest struct {
	Name             string `json:"name"`
	Icon             string `json:"icon"`
	Color            string `json:"color"`
	ParentCategoryID *int64 `json:"parentCategoryId"`
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	categories, err := h.service.ListCategories(r.Context(), ownerID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve categories")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Categories retrieved successfully.",
		"data":    categories,
	})
}

func (h *CategoryHandler) GetCategoryTree(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	tree, err := h.service.GetCategoryTree(r.Context(), ownerID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve categories")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Category tree retrieved successfully.",
		"data":    tree,
	})
}

func (h *CategoryHandler) GetSubcategories(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}
	parentID, ok := h.categoryID(w, r)
	if !ok {
		return
	}

	subcategories, err := h.service.GetSubcategories(r.Context(), ownerID, parentID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve subcategories")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subcategories retrieved successfully.",
		"data":    subcategories,
	})
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.service.CreateCategory(r.Context(), ownerID, req.Name, req.Icon, req.Color, req.ParentCategoryID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to create category")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Category created successfully.",
		"data":    category,
	})
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}

	fields, err := decodeCategoryFields(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), id, ownerID, fields)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to update category")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Category updated successfully.",
		"data":    category,
	})
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}
	id, ok := h.categoryID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id, ownerID); err != nil {
		h.handleServiceError(w, r, err, "Failed to delete category")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Category deleted successfully.",
	})
}

// decodeCategoryFields reads a partial update. A JSON null parentCategoryId moves the category to
// the top level, while an absent key leaves the parent alone. null is rejected for every other key.
func decodeCategoryFields(r *http.Request) (domain.CategoryFields, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return domain.CategoryFields{}, errors.New("Invalid request body")
	}

	var fields domain.CategoryFields
	for _, key := range []string{"name", "icon", "color"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		var s *string
		if err := json.Unmarshal(value, &s); err != nil || s == nil {
			return domain.CategoryFields{}, fmt.Errorf("Invalid value for %s", key)
		}
		switch key {
		case "name":
			fields.Name = s
		case "icon":
			fields.Icon = s
		case "color":
			fields.Color = s
		}
	}

	if value, ok := raw["isActive"]; ok {
		var active *bool
		if err := json.Unmarshal(value, &active); err != nil || active == nil {
			return domain.CategoryFields{}, errors.New("Invalid value for isActive")
		}
		fields.IsActive = active
	}

	if value, ok := raw["parentCategoryId"]; ok {
		var parentID *int64
		if err := json.Unmarshal(value, &parentID); err != nil {
			return domain.CategoryFields{}, errors.New("Invalid value for parentCategoryId")
		}
		fields.Parent = &domain.ParentRef{ID: parentID}
	}

	return fields, nil
}

func (h *CategoryHandler) ownerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return ownerID, true
}

func (h *CategoryHandler) categoryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("categoryID"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid category ID")
		return 0, false
	}
	return id, true
}

func (h *CategoryHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if validationErrors, ok := financeErrors.AsValidationErrors(err); ok {
		h.respondError(w, http.StatusBadRequest, "Validation failed", validationErrors.Messages())
		return
	}

	switch {
	case financeErrors.IsValidationError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, financeErrors.ErrCategoryNotFound):
		h.respondError(w, http.StatusNotFound, financeErrors.ErrCategoryNotFound.Error())
	case errors.Is(err, financeErrors.ErrParentNotFound):
		h.respondError(w, http.StatusBadRequest, financeErrors.ErrParentNotFound.Error())
	case errors.Is(err, financeErrors.ErrMaxDepthExceeded):
		h.respondError(w, http.StatusBadRequest, financeErrors.ErrMaxDepthExceeded.Error())
	case errors.Is(err, financeErrors.ErrProtectedCategory):
		h.respondError(w, http.StatusForbidden, financeErrors.ErrProtectedCategory.Error())
	default:
		h.logger.ErrorContext(r.Context(), fallback, "method", r.Method, "path", r.URL.Path, "error", err)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}
