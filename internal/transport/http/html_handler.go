package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "cardash/internal/errors"
	appmiddleware "cardash/internal/middleware"
	"cardash/internal/renderer"
	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

// pageQuery carries the optional ?brand= parameter through the validator
type pageQuery struct {
	Brand string `json:"brand" validate:"omitempty,brand"`
}

// HTMLHandler serves the server-rendered dashboard pages
type HTMLHandler struct {
	dashboard    services.Dashboard
	renderer     *renderer.Renderer
	validation   *appmiddleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewHTMLHandler creates a new HTML handler
func NewHTMLHandler(dashboard services.Dashboard, r *renderer.Renderer, validation *appmiddleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *HTMLHandler {
	return &HTMLHandler{
		dashboard:    dashboard,
		renderer:     r,
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "html_handler")),
	}
}

// Index handles GET / with the first menu entry
func (h *HTMLHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, domain.AggregateMetrics{})
}

// View handles GET /views/{view}. The individual brand page takes the brand
// from ?brand= and falls back to the most traded brand.
func (h *HTMLHandler) View(w http.ResponseWriter, r *http.Request) {
	query := pageQuery{Brand: strings.TrimSpace(r.URL.Query().Get("brand"))}
	if err := h.validation.ValidateStruct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name := chi.URLParam(r, "view")
	brand := query.Brand
	if brand == "" && domain.ViewKind(name) == domain.ViewIndividualBrand {
		var err error
		if brand, err = h.defaultBrand(r.Context()); err != nil {
			h.errorHandler.HandleError(w, r, services.ToAPIError(err))
			return
		}
	}

	view, err := domain.ParseView(name, brand)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.serve(w, r, view)
}

func (h *HTMLHandler) defaultBrand(ctx context.Context) (string, error) {
	brands, err := h.dashboard.Brands(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(brands) == 0 {
		return "", apierrors.ErrValidation("brand", "the dataset holds no brands to pick from")
	}
	return brands[0].Brand, nil
}

func (h *HTMLHandler) serve(w http.ResponseWriter, r *http.Request, view domain.View) {
	rendered, err := h.dashboard.Render(r.Context(), view)
	if err != nil {
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}

	page, err := h.renderer.Page(rendered)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "page rendering failed",
			slog.String("view", string(view.Kind())),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrRenderFailed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
