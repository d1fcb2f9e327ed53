package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/maps"
	"StayMap-App/internal/usecase"
)

// UserIDHeader 認証済みユーザーのIDを受け取るヘッダー（前段の認証プロキシが付与する）
const UserIDHeader = "X-User-ID"

// DiscoveryHandler 物件探索APIのハンドラー
type DiscoveryHandler struct {
	discoveryUseCase usecase.DiscoveryUseCase
	loginURL         string
}

// NewDiscoveryHandler 新しいDiscoveryHandlerインスタンスを作成
func NewDiscoveryHandler(discoveryUseCase usecase.DiscoveryUseCase, loginURL string) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryUseCase: discoveryUseCase,
		loginURL:         loginURL,
	}
}

// visibleQuery GET /api/properties/visible のクエリパラメータ
type visibleQuery struct {
	BBox      string `form:"bbox"`
	PriceMin  int    `form:"price_min" binding:"min=0"`
	PriceMax  *int   `form:"price_max" binding:"omitempty,min=0"`
	Category  string `form:"category"`
	Bedrooms  int    `form:"bedrooms" binding:"min=0"`
	Guests    int    `form:"guests" binding:"min=0"`
	Amenities string `form:"amenities"`
}

// currentUser ヘッダーからユーザーを取得する。未ログインならnil
func currentUser(c *gin.Context) *model.User {
	id := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if id == "" {
		return nil
	}
	return &model.User{ID: id}
}

// ParseBBox "west,south,east,north" 形式の境界を解析する。west > east は日付変更線またぎ
func ParseBBox(bbox string) (*model.Bounds, error) {
	if strings.TrimSpace(bbox) == "" {
		return nil, nil
	}
	coords := strings.Split(bbox, ",")
	if len(coords) != 4 {
		return nil, &ValidationError{Field: "bbox", Message: "bboxは west,south,east,north の4つの値が必要です"}
	}

	names := []string{"west", "south", "east", "north"}
	values := make([]float64, 4)
	for i, raw := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &ValidationError{Field: "bbox." + names[i], Message: "数値で指定してください"}
		}
		values[i] = v
	}

	bounds, err := model.NewBounds(values[3], values[1], values[2], values[0])
	if err != nil {
		return nil, err
	}
	return &bounds, nil
}

func (q *visibleQuery) toFilterState() (model.FilterState, error) {
	category, err := model.ParseCategory(q.Category)
	if err != nil {
		return model.FilterState{}, err
	}
	var amenities []string
	for _, a := range strings.Split(q.Amenities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	return model.FilterState{
		PriceMin:    q.PriceMin,
		PriceMax:    q.PriceMax,
		Category:    category,
		MinBedrooms: q.Bedrooms,
		MinGuests:   q.Guests,
		Amenities:   amenities,
	}, nil
}

// GetVisibleProperties GET /api/properties/visible - 境界とフィルター条件に一致する物件
func (h *DiscoveryHandler) GetVisibleProperties(c *gin.Context) {
	var query visibleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
		return
	}

	bounds, err := ParseBBox(query.BBox)
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter, err := query.toFilterState()
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.discoveryUseCase.VisibleProperties(c.Request.Context(), bounds, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCategories GET /api/categories - カテゴリ一覧
func (h *DiscoveryHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.discoveryUseCase.Categories()})
}

// ToggleWishlist POST /api/wishlist/:property_id/toggle - お気に入りの切り替え
func (h *DiscoveryHandler) ToggleWishlist(c *gin.Context) {
	propertyID := c.Param("property_id")
	result, err := h.discoveryUseCase.ToggleWishlist(c.Request.Context(), currentUser(c), propertyID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetWishlist GET /api/wishlist - お気に入り物件ID一覧
func (h *DiscoveryHandler) GetWishlist(c *gin.Context) {
	ids, err := h.discoveryUseCase.Wishlist(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_ids": ids})
}

// Autocomplete GET /api/places/autocomplete - 住所・都市名の候補
//
// 候補の取得に失敗しても利用者にはエラーを見せず、空の候補を返す。
func (h *DiscoveryHandler) Autocomplete(c *gin.Context) {
	predictions, err := h.discoveryUseCase.Autocomplete(c.Request.Context(), c.Query("input"), c.Query("country"))
	if err != nil {
		logging.Warn().Err(err).Str("input", c.Query("input")).Msg("⚠️ 候補の取得に失敗")
		predictions = []model.Prediction{}
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

// GetPlace GET /api/places/:id - 候補の座標を解決する
func (h *DiscoveryHandler) GetPlace(c *gin.Context) {
	details, err := h.discoveryUseCase.ResolvePlace(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetViewMode GET /api/preferences/view-mode - 表示モード
func (h *DiscoveryHandler) GetViewMode(c *gin.Context) {
	userID := ""
	if user := currentUser(c); user != nil {
		userID = user.ID
	}
	c.JSON(http.StatusOK, gin.H{"view_mode": h.discoveryUseCase.GetViewMode(c.Request.Context(), userID)})
}

type viewModeRequest struct {
	ViewMode string `json:"view_mode" binding:"required"`
}

// PutViewMode PUT /api/preferences/view-mode - 表示モードの保存
func (h *DiscoveryHandler) PutViewMode(c *gin.Context) {
	var req viewModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}
	mode, err := model.ParseViewMode(req.ViewMode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	userID := ""
	if user := currentUser(c); user != nil {
		userID = user.ID
	}
	if err := h.discoveryUseCase.SetViewMode(c.Request.Context(), userID, mode); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_mode": mode})
}

// RetrySnapshot POST /api/properties/retry - 失敗したスナップショットのロードを再試行
func (h *DiscoveryHandler) RetrySnapshot(c *gin.Context) {
	if err := h.discoveryUseCase.Retry(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": h.discoveryUseCase.SnapshotState().String()})
}

// Health GET /api/health - ヘルスチェック
func (h *DiscoveryHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "StayMap-App",
		"snapshot": h.discoveryUseCase.SnapshotState().String(),
	})
}

// respondError ドメインエラーをHTTPステータスに変換する
func (h *DiscoveryHandler) respondError(c *gin.Context, err error) {
	var validationErr *ValidationError
	switch {
	case errors.Is(err, model.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "login_required",
			"message":   err.Error(),
			"login_url": h.loginURL,
		})
	case errors.As(err, &validationErr),
		errors.Is(err, model.ErrInvalidBounds),
		errors.Is(err, model.ErrInvalidFilter),
		errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, model.ErrInvalidViewMode):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, model.ErrInvalidCoordinate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "invalid_location",
			"message": err.Error(),
		})
	case errors.Is(err, model.ErrSnapshotNotLoaded), errors.Is(err, maps.ErrPlacesUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "unavailable",
			"message": err.Error(),
		})
	default:
		logging.Error().Err(err).Str("path", c.FullPath()).Msg("❌ リクエスト処理に失敗")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
