package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "cardash/internal/errors"
	appmiddleware "cardash/internal/middleware"
	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

// MaxTopBrands bounds the top query parameter
const MaxTopBrands = 100

// brandParam carries the {brand} path segment through the validator
type brandParam struct {
	Brand string `json:"brand" validate:"brand"`
}

// BrandsResponse is the brand picker payload
type BrandsResponse struct {
	Top    int                 `json:"top"`
	Brands []domain.BrandCount `json:"brands"`
}

// ViewsHandler serves the three dashboard views as JSON
type ViewsHandler struct {
	dashboard    services.Dashboard
	topBrands    int
	queries      *appmiddleware.QueryParamValidator
	validation   *appmiddleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewViewsHandler creates the handler. topBrands is the default of the top
// query parameter.
func NewViewsHandler(dashboard services.Dashboard, topBrands int, validation *appmiddleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ViewsHandler {
	return &ViewsHandler{
		dashboard:    dashboard,
		topBrands:    topBrands,
		queries:      appmiddleware.NewQueryParamValidator(logger, errorHandler),
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "views_handler")),
	}
}

// Routes returns the view routes mounted under /api/views
func (h *ViewsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/"+string(domain.ViewAggregateMetrics), h.AggregateMetrics)
	r.Get("/"+string(domain.ViewAggregateGraphic), h.AggregateGraphic)
	r.Get("/brands", h.Brands)
	r.With(h.BrandCtx).Get("/brands/{brand}", h.IndividualBrand)
	return r
}

// BrandCtx validates the {brand} path parameter
func (h *ViewsHandler) BrandCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		brand, err := url.PathUnescape(chi.URLParam(r, "brand"))
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("brand", "brand is not a valid path segment"))
			return
		}
		if err := h.validation.ValidateStruct(brandParam{Brand: brand}); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AggregateMetrics handles GET /api/views/aggregate-metrics
func (h *ViewsHandler) AggregateMetrics(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboard.AggregateMetrics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// AggregateGraphic handles GET /api/views/aggregate-graphic?top=n
func (h *ViewsHandler) AggregateGraphic(w http.ResponseWriter, r *http.Request) {
	top, ok := h.queries.ValidateInt(w, r, "top", 1, MaxTopBrands, h.topBrands)
	if !ok {
		return
	}

	view, err := h.dashboard.AggregateGraphic(r.Context(), top)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Brands handles GET /api/views/brands?top=n
func (h *ViewsHandler) Brands(w http.ResponseWriter, r *http.Request) {
	top, ok := h.queries.ValidateInt(w, r, "top", 1, MaxTopBrands, h.topBrands)
	if !ok {
		return
	}

	brands, err := h.dashboard.Brands(r.Context(), top)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, BrandsResponse{Top: top, Brands: brands})
}

// IndividualBrand handles GET /api/views/brands/{brand}
func (h *ViewsHandler) IndividualBrand(w http.ResponseWriter, r *http.Request) {
	brand, _ := url.PathUnescape(chi.URLParam(r, "brand"))

	view, err := h.dashboard.IndividualBrand(r.Context(), brand)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *ViewsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "view request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	h.errorHandler.HandleError(w, r, services.ToAPIError(err))
}
