package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/party-market/internal/config"
	"github.com/wfunc/party-market/internal/repository"
	"github.com/wfunc/party-market/internal/websocket"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Game: config.GameConfig{
			InitialCash:    100,
			NumberOfStocks: 4,
			TotalRounds:    3,
			MaxPlayers:     8,
			JitterMin:      1.0,
			JitterMax:      1.0,
		},
		Generator: config.GeneratorConfig{Mode: "template"},
		Security: config.SecurityConfig{
			JWTSecret:          "test-secret",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })

	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	return NewRouter(db, testConfig(), hub, zap.NewNop())
}

func doJSON(router *Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	// 注册
	w := doJSON(router, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "host1",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.NotEmpty(t, resp["access_token"])

	// 缺少必填字段
	w = doJSON(router, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "host2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 登录
	w = doJSON(router, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "host1",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 密码错误
	w = doJSON(router, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "host1",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, "POST", "/api/v1/rooms", "", map[string]int{"total_rounds": 3})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// 走一遍完整流程：注册 → 建房 → 两人加入 → 开局 → 全员下单 → 推进到揭示
func TestFullGameFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "host1",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["access_token"].(string)

	// 建房
	w = doJSON(router, "POST", "/api/v1/rooms", token, map[string]int{})
	require.Equal(t, http.StatusOK, w.Code)
	room := decode(t, w)
	code := room["code"].(string)
	roomID := uint(room["id"].(float64))

	// 两名玩家加入
	playerIDs := make([]uint, 0, 2)
	for _, name := range []string{"阿强", "小美"} {
		w = doJSON(router, "POST", "/api/v1/rooms/join", "", map[string]string{
			"code": code,
			"name": name,
		})
		require.Equal(t, http.StatusOK, w.Code)
		player := decode(t, w)["player"].(map[string]interface{})
		playerIDs = append(playerIDs, uint(player["id"].(float64)))
	}

	// 昵称冲突
	w = doJSON(router, "POST", "/api/v1/rooms/join", "", map[string]string{
		"code": code,
		"name": "阿强",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 人数不足之外的非房主推进被拒
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/rooms/%d/start", roomID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 开局
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/rooms/%d/start", roomID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "submitting_orders", decode(t, w)["phase"])

	// 房间状态：4支股票、2名玩家
	w = doJSON(router, "GET", fmt.Sprintf("/api/v1/rooms/%d", roomID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)
	assert.Len(t, state["stocks"], 4)
	assert.Len(t, state["players"], 2)

	// 未全员行动时推进被拒
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/rooms/%d/advance", roomID), token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 全员跳过
	for _, pid := range playerIDs {
		w = doJSON(router, "POST", fmt.Sprintf("/api/v1/rooms/%d/orders", roomID), "", map[string]interface{}{
			"player_id": pid,
			"type":      "skip",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	// 推进到揭示阶段
	w = doJSON(router, "POST", fmt.Sprintf("/api/v1/rooms/%d/advance", roomID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	assert.Equal(t, "revealing_event", result["phase"])
	assert.NotNil(t, result["event"])
}
