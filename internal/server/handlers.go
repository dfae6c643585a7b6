package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"curator/internal/core"
	"curator/internal/favorites"
)

// Recommender produces full recommendation sets and single-category answers.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*core.Recommendations, error)
	RelatedItems(ctx context.Context, query string, category core.Category) ([]core.RelatedItem, error)
}

// ImageResolver is the image cascade as seen by the HTTP layer.
type ImageResolver = core.ImageResolver

// Handler holds the HTTP handlers
type Handler struct {
	recommender Recommender
	images      ImageResolver
	favorites   favorites.Store
	logger      *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(recommender Recommender, images ImageResolver, favs favorites.Store, logger *slog.Logger) *Handler {
	return &Handler{
		recommender: recommender,
		images:      images,
		favorites:   favs,
		logger:      logger,
	}
}

// Health handles GET /health
//
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Recommendations handles GET /v1/recommendations?q=
//
// @Summary      Recommendations in all four categories
// @Tags         recommendations
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  true  "Search query, e.g. an artist name"
// @Success      200  {object}  core.Recommendations
// @Failure      400  {object}  core.ServiceError
// @Failure      401  {object}  core.ServiceError
// @Failure      504  {object}  core.ServiceError
// @Router       /v1/recommendations [get]
func (h *Handler) Recommendations(c echo.Context) error {
	recs, err := h.recommender.Recommend(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

type relatedRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

type relatedResponse struct {
	Items []core.RelatedItem `json:"items"`
}

type imageResponse struct {
	URL string `json:"url"`
}

type favoritesResponse struct {
	Favorites []favorites.Favorite `json:"favorites"`
}

// RelatedItems handles POST /v1/related. The category may be a key or its label.
//
// @Summary      Related items for one category
// @Tags         recommendations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      relatedRequest  true  "Query and category (key or label)"
// @Success      200      {object}  relatedResponse
// @Failure      400      {object}  core.ServiceError
// @Failure      401      {object}  core.ServiceError
// @Failure      502      {object}  core.ServiceError
// @Router       /v1/related [post]
func (h *Handler) RelatedItems(c echo.Context) error {
	var req relatedRequest
	if err := c.Bind(&req); err != nil {
		return h.handleError(c, core.NewInvalidRequestError("invalid request body", err))
	}
	category, ok := core.ParseCategory(strings.TrimSpace(req.Category))
	if !ok {
		return h.handleError(c, core.NewInvalidRequestError("unknown category: "+req.Category, nil))
	}

	items, err := h.recommender.RelatedItems(c.Request().Context(), req.Query, category)
	if err != nil {
		return h.handleError(c, err)
	}
	if items == nil {
		items = []core.RelatedItem{}
	}
	return c.JSON(http.StatusOK, relatedResponse{Items: items})
}

// Image handles GET /v1/images?name=&strategy=
//
// @Summary      Resolve an image through the provider cascade
// @Tags         images
// @Produce      json
// @Security     BearerAuth
// @Param        name      query     string  true  "Entity name"
// @Param        strategy  query     string  true  "artist, person, media or fashion"
// @Success      200       {object}  imageResponse
// @Failure      400       {object}  core.ServiceError
// @Failure      401       {object}  core.ServiceError
// @Router       /v1/images [get]
func (h *Handler) Image(c echo.Context) error {
	strategy := core.Strategy(c.QueryParam("strategy"))
	if !strategy.Valid() {
		return h.handleError(c, core.NewInvalidRequestError("unknown strategy: "+string(strategy), nil))
	}
	imageURL := h.images.Resolve(c.Request().Context(), c.QueryParam("name"), strategy)
	return c.JSON(http.StatusOK, imageResponse{URL: imageURL})
}

// ListFavorites handles GET /v1/users/:owner/favorites
//
// @Summary      List favorites in insertion order
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        owner  path      string  true  "Owner"
// @Success      200    {object}  favoritesResponse
// @Failure      401    {object}  core.ServiceError
// @Router       /v1/users/{owner}/favorites [get]
func (h *Handler) ListFavorites(c echo.Context) error {
	list, err := h.favorites.List(c.Request().Context(), pathParam(c, "owner"))
	if err != nil {
		return h.handleError(c, err)
	}
	if list == nil {
		list = []favorites.Favorite{}
	}
	return c.JSON(http.StatusOK, favoritesResponse{Favorites: list})
}

// AddFavorite handles POST /v1/users/:owner/favorites.
// It answers 201 for a new favorite and 200 when the name was already saved.
//
// @Summary      Add a favorite
// @Tags         favorites
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        owner  path      string                   true  "Owner"
// @Param        item   body      core.RecommendationItem  true  "Item to save"
// @Success      200    {object}  favorites.Favorite
// @Success      201    {object}  favorites.Favorite
// @Failure      400    {object}  core.ServiceError
// @Failure      401    {object}  core.ServiceError
// @Router       /v1/users/{owner}/favorites [post]
func (h *Handler) AddFavorite(c echo.Context) error {
	var item core.RecommendationItem
	if err := c.Bind(&item); err != nil {
		return h.handleError(c, core.NewInvalidRequestError("invalid request body", err))
	}

	ctx := c.Request().Context()
	owner := pathParam(c, "owner")
	added, err := h.favorites.Add(ctx, owner, item)
	if err != nil {
		return h.handleError(c, err)
	}
	fav, err := h.favorites.Get(ctx, owner, item.Name)
	if err != nil {
		return h.handleError(c, err)
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return c.JSON(status, fav)
}

// GetFavorite handles GET /v1/users/:owner/favorites/:name
//
// @Summary      Get one favorite
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Param        owner  path      string  true  "Owner"
// @Param        name   path      string  true  "Item name"
// @Success      200    {object}  favorites.Favorite
// @Failure      404    {object}  core.ServiceError
// @Router       /v1/users/{owner}/favorites/{name} [get]
func (h *Handler) GetFavorite(c echo.Context) error {
	fav, err := h.favorites.Get(c.Request().Context(), pathParam(c, "owner"), pathParam(c, "name"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, fav)
}

// RemoveFavorite handles DELETE /v1/users/:owner/favorites/:name
//
// @Summary      Remove a favorite
// @Tags         favorites
// @Security     BearerAuth
// @Param        owner  path  string  true  "Owner"
// @Param        name   path  string  true  "Item name"
// @Success      204
// @Failure      404  {object}  core.ServiceError
// @Router       /v1/users/{owner}/favorites/{name} [delete]
func (h *Handler) RemoveFavorite(c echo.Context) error {
	removed, err := h.favorites.Remove(c.Request().Context(), pathParam(c, "owner"), pathParam(c, "name"))
	if err != nil {
		return h.handleError(c, err)
	}
	if !removed {
		return h.handleError(c, favorites.ErrNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// pathParam returns an unescaped path parameter. Echo only leaves parameters
// escaped when the request carries a non-canonical RawPath.
func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// statusClientClosedRequest is nginx's code for a client that hung up first.
const statusClientClosedRequest = 499

// handleError converts service errors to appropriate HTTP responses
func (h *Handler) handleError(c echo.Context, err error) error {
	var svcErr *core.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return c.JSON(svcErr.HTTPStatusCode(), svcErr.ToJSON())
	case errors.Is(err, favorites.ErrNotFound):
		return c.JSON(http.StatusNotFound, core.NewNotFoundError(err.Error()).ToJSON())
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, map[string]interface{}{
			"error": map[string]interface{}{
				"type":    "timeout_error",
				"message": "request timed out",
			},
		})
	case errors.Is(err, context.Canceled):
		h.logger.DebugContext(c.Request().Context(), "client closed request", "path", c.Path())
		return c.NoContent(statusClientClosedRequest)
	}

	h.logger.ErrorContext(c.Request().Context(), "unexpected error", "error", err, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
