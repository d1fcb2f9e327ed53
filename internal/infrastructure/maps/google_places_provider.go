package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"StayMap-App/internal/domain/model"
	"StayMap-App/internal/infrastructure/logging"
	"StayMap-App/internal/infrastructure/metrics"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Places APIのステータス
const (
	statusOK           = "OK"
	statusZeroResults  = "ZERO_RESULTS"
	statusNotFound     = "NOT_FOUND"
	statusInvalidInput = "INVALID_REQUEST"
)

// ErrPlacesUnavailable Places APIが失敗を続けてブレーカーが開いている
var ErrPlacesUnavailable = errors.New("Places APIが一時的に利用できません")

// errCallerCanceled 呼び出し元のcontextが先に終了した。上流の障害としては数えない
var errCallerCanceled = errors.New("呼び出し元がリクエストを中断しました")

// BreakerSettings サーキットブレーカーの設定
type BreakerSettings struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// GooglePlacesProvider Google Places API（Autocomplete・Details）を使った住所検索の実装
type GooglePlacesProvider struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewGooglePlacesProvider 新しいプロバイダを生成する
func NewGooglePlacesProvider(apiKey string, settings BreakerSettings) *GooglePlacesProvider {
	return &GooglePlacesProvider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		language:   "en",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    newBreaker("google-places", settings),
	}
}

// WithBaseURL 接続先を差し替える（テスト用）
func (g *GooglePlacesProvider) WithBaseURL(baseURL string) *GooglePlacesProvider {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

func newBreaker(name string, settings BreakerSettings) *gobreaker.CircuitBreaker[[]byte] {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errCallerCanceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("⚠️ サーキットブレーカーの状態が変化")
		},
	})
}

// BreakerState ブレーカーの現在状態（ヘルスチェック用）
func (g *GooglePlacesProvider) BreakerState() string {
	return g.breaker.State().String()
}

// Predict 入力テキストに対する候補を取得する。0件は空スライスでエラーではない
func (g *GooglePlacesProvider) Predict(ctx context.Context, text, country string) ([]model.Prediction, error) {
	params := url.Values{}
	params.Set("input", text)
	params.Set("types", "geocode")
	if country != "" {
		params.Set("components", "country:"+strings.ToLower(country))
	}

	var apiResp autocompleteResponse
	if err := g.call(ctx, "predict", "/autocomplete/json", params, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != statusOK {
		return []model.Prediction{}, nil
	}

	predictions := make([]model.Prediction, 0, len(apiResp.Predictions))
	for _, p := range apiResp.Predictions {
		predictions = append(predictions, model.Prediction{
			ID:            p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return predictions, nil
}

// Resolve 候補IDから正確な座標を取得する
func (g *GooglePlacesProvider) Resolve(ctx context.Context, placeID string) (*model.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "geometry,formatted_address,name")

	var apiResp detailsResponse
	if err := g.call(ctx, "resolve", "/details/json", params, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != statusOK {
		return nil, fmt.Errorf("%w: place_id=%s", model.ErrNotFound, placeID)
	}

	label := apiResp.Result.FormattedAddress
	if label == "" {
		label = apiResp.Result.Name
	}
	return &model.PlaceDetails{
		ID:    placeID,
		Lat:   apiResp.Result.Geometry.Location.Lat,
		Lng:   apiResp.Result.Geometry.Location.Lng,
		Label: label,
	}, nil
}

// call ブレーカー越しにAPIを呼び出してJSONをデコードする
//
// 上流の失敗ステータス（OVER_QUERY_LIMIT、REQUEST_DENIEDなど）はブレーカー内でエラーにし、
// 呼び出し元のキャンセルは失敗として数えない。
func (g *GooglePlacesProvider) call(ctx context.Context, operation, path string, params url.Values, out apiResponse) error {
	params.Set("language", g.language)
	params.Set("key", g.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", g.baseURL, path, params.Encode())

	_, err := g.breaker.Execute(func() ([]byte, error) {
		body, err := g.fetch(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errCallerCanceled, err)
			}
			return nil, err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
		}
		if status, message := out.apiStatus(); !isExpectedStatus(status) {
			return nil, fmt.Errorf("Places APIがエラーを返しました: %s %s", status, message)
		}
		return body, nil
	})
	if err != nil {
		metrics.PlacesCalls.WithLabelValues(operation, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrPlacesUnavailable, err)
		}
		return err
	}
	metrics.PlacesCalls.WithLabelValues(operation, "ok").Inc()
	return nil
}

// isExpectedStatus 上流が正常に応答したとみなすステータス
func isExpectedStatus(status string) bool {
	switch status {
	case statusOK, statusZeroResults, statusNotFound, statusInvalidInput:
		return true
	}
	return false
}

func (g *GooglePlacesProvider) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}
	return raw, nil
}

// --- Google Places APIのレスポンスをパースするための構造体 ---

type apiResponse interface {
	apiStatus() (status, message string)
}

type autocompleteResponse struct {
	Predictions  []prediction `json:"predictions"`
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

func (r *autocompleteResponse) apiStatus() (string, string) { return r.Status, r.ErrorMessage }

type prediction struct {
	PlaceID              string               `json:"place_id"`
	Description          string               `json:"description"`
	StructuredFormatting structuredFormatting `json:"structured_formatting"`
}
type structuredFormatting struct {
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

type detailsResponse struct {
	Result       placeResult `json:"result"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

func (r *detailsResponse) apiStatus() (string, string) { return r.Status, r.ErrorMessage }

type placeResult struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         geometry `json:"geometry"`
}
type geometry struct {
	Location location `json:"location"`
}
type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
