package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcare/backend/internal/auth"
	"mindcare/backend/internal/db"
	"mindcare/backend/internal/delivery"
	"mindcare/backend/internal/handlers"
	"mindcare/backend/internal/middleware"
	"mindcare/backend/internal/models"
	"mindcare/backend/internal/realtime"
	"mindcare/backend/internal/resources"
	"mindcare/backend/internal/responder"
)

type fixedSource int

func (f fixedSource) Intn(n int) int { return int(f) % n }

type testServer struct {
	t       *testing.T
	handler http.Handler
	api     *handlers.API
	store   *db.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := db.NewMemory()
	return newTestServerWith(t, store, store)
}

// newTestServerWith serves through gateway; mem is the memory store behind
// it, used by assertions.
func newTestServerWith(t *testing.T, gateway db.Store, mem *db.Memory) *testServer {
	t.Helper()
	authService, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	dir, err := resources.Builtin("KE")
	require.NoError(t, err)
	api := handlers.NewAPI(gateway, authService, realtime.NewHub(), responder.New(nil, fixedSource(0)), dir)
	return &testServer{
		t:       t,
		handler: New(api, authService, middleware.NewRateLimiter(1000, time.Minute), "http://localhost:3000"),
		api:     api,
		store:   mem,
	}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) register(name, email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody(s.t, rec)["token"].(string)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Wanjiru", "wanjiru@example.com")
	assert.NotEmpty(t, token)

	rec := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "WANJIRU@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "wanjiru@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "wanjiru@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "wanjiru@example.com", body["user"].(map[string]any)["email"])
}

func TestRegisterAppendsWelcomeMessage(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Baraka", "baraka@example.com")

	rec := s.do(http.MethodGet, "/api/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decodeBody(t, rec)["messages"].([]any)
	require.Len(t, msgs, 1)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "bot", first["sender"])
	assert.Contains(t, first["text"], "Hello Baraka! I'm MindCare AI")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/messages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token required", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodGet, "/api/messages", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid token", decodeBody(t, rec)["error"])
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MindCare AI API", decodeBody(t, rec)["message"])

	rec = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/resources/us", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "US", body["resources"].(map[string]any)["code"])

	rec = s.do(http.MethodGet, "/api/resources/zz", "", nil)
	assert.Equal(t, "KE", decodeBody(t, rec)["resources"].(map[string]any)["code"])

	rec = s.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagesLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodPost, "/api/messages", token, map[string]any{
		"text": "feeling good", "sender": "user", "mood": map[string]string{"mood": "happy"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeBody(t, rec)["data"].(map[string]any)
	tag := data["mood"].(map[string]any)
	assert.Equal(t, "Happy", tag["mood"])
	assert.Equal(t, "#48bb78", tag["color"])

	rec = s.do(http.MethodPost, "/api/messages", token, map[string]any{"text": "x", "sender": "robot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Text and sender are required", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodDelete, "/api/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/messages", token, nil)
	assert.Empty(t, decodeBody(t, rec)["messages"])
}

func TestAIResponse(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodPost, "/api/messages/ai-response", token, map[string]string{"message": "hello there"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "greeting", body["category"])
	assert.Equal(t, responder.DefaultCatalog()[responder.Greeting][0], body["response"])
	assert.NotEmpty(t, body["messageId"])
	assert.Nil(t, body["resources"])

	rec = s.do(http.MethodPost, "/api/messages/ai-response", token, map[string]string{"message": "I want to die", "country": "GB"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "crisis", body["category"])
	assert.Equal(t, "GB", body["resources"].(map[string]any)["code"])

	rec = s.do(http.MethodPost, "/api/messages/ai-response", token, map[string]string{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStoresMessageSessionAndReply(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	long := "I have been feeling anxious about my exams for the whole week now"
	rec := s.do(http.MethodPost, "/api/chat", token, map[string]any{
		"text": long, "mood": map[string]string{"mood": "Anxious"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "anxiety", decodeBody(t, rec)["category"])

	rec = s.do(http.MethodGet, "/api/messages", token, nil)
	msgs := decodeBody(t, rec)["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[1].(map[string]any)["sender"])
	assert.Equal(t, "bot", msgs[2].(map[string]any)["sender"])

	rec = s.do(http.MethodGet, "/api/sessions", token, nil)
	sessions := decodeBody(t, rec)["sessions"].([]any)
	require.Len(t, sessions, 1)
	session := sessions[0].(map[string]any)
	assert.Equal(t, "Anxious", session["mood"])
	assert.Equal(t, long[:50]+"...", session["preview"])

	rec = s.do(http.MethodPost, "/api/chat", token, map[string]any{"text": "thank you"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = s.do(http.MethodGet, "/api/sessions", token, nil)
	newest := decodeBody(t, rec)["sessions"].([]any)[0].(map[string]any)
	assert.Equal(t, "Not specified", newest["mood"])
}

func TestMoodsAndStats(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	for _, m := range []string{"Happy", "Happy", "Sad"} {
		rec := s.do(http.MethodPost, "/api/moods", token, map[string]string{"mood": m, "notes": "n"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := s.do(http.MethodPost, "/api/moods", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Mood is required", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodGet, "/api/moods?days=7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["moods"], 3)

	rec = s.do(http.MethodGet, "/api/moods/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(3), stats["totalLogs"])
	assert.Equal(t, "30 days", stats["period"])
	assert.Equal(t, 66.67, stats["moodPercentages"].(map[string]any)["Happy"])
}

func TestTracker(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodGet, "/api/tracker", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["totalDays"])
	assert.Equal(t, "insufficient_data", body["trend"])
	assert.Nil(t, body["advice"])

	rec = s.do(http.MethodPost, "/api/chat", token, map[string]any{"text": "great day", "mood": map[string]string{"mood": "Happy"}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.do(http.MethodGet, "/api/tracker?tz=Africa/Nairobi", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["totalDays"])
	assert.Equal(t, float64(5), body["averageMood"])
	assert.Equal(t, "excellent", body["advice"].(map[string]any)["type"])

	rec = s.do(http.MethodGet, "/api/tracker?tz=Mars/Olympus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileAndPreferences(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "Amani", user["name"])
	assert.Nil(t, user["PasswordHash"])

	rec = s.do(http.MethodPut, "/api/user/profile", token, map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/user/profile", token, map[string]string{"name": "Amani W."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Amani W.", decodeBody(t, rec)["user"].(map[string]any)["name"])

	rec = s.do(http.MethodPut, "/api/user/preferences", token, map[string]string{"theme": "blue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/user/preferences", token, map[string]string{"country": "za"})
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := decodeBody(t, rec)["preferences"].(map[string]any)
	assert.Equal(t, "ZA", prefs["country"])
	assert.Equal(t, "light", prefs["theme"])

	rec = s.do(http.MethodPost, "/api/messages/ai-response", token, map[string]string{"message": "I want to end it all"})
	assert.Equal(t, "ZA", decodeBody(t, rec)["resources"].(map[string]any)["code"])
}

func TestRateLimited(t *testing.T) {
	store := db.NewMemory()
	authService, _ := auth.NewService("test-secret", time.Hour)
	api := handlers.NewAPI(store, authService, realtime.NewHub(), nil, nil)
	h := New(api, authService, middleware.NewRateLimiter(2, time.Minute), "")

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func (s *testServer) userID(email string) string {
	s.t.Helper()
	user, err := s.store.UserByEmail(context.Background(), email)
	require.NoError(s.t, err)
	return user.ID
}

func TestChatRejectedWhenLaneFullStoresNothing(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")
	lanes := delivery.NewLanes(delivery.StoreAndBroadcast(s.store, nil))
	defer lanes.Stop()
	s.api.Dispatcher = lanes
	s.api.TypingDelay = time.Hour

	counts := map[int]int{}
	for i := 0; i < 40; i++ {
		rec := s.do(http.MethodPost, "/api/chat", token, map[string]string{"text": fmt.Sprintf("note %d", i)})
		counts[rec.Code]++
		if rec.Code == http.StatusServiceUnavailable {
			assert.Equal(t, "Too many pending replies", decodeBody(t, rec)["error"])
		}
	}
	assert.Equal(t, map[int]int{http.StatusAccepted: 32, http.StatusServiceUnavailable: 8}, counts)

	ctx := context.Background()
	id := s.userID("amani@example.com")
	msgs, err := s.store.ListMessages(ctx, id, 0)
	require.NoError(t, err)
	userMsgs := 0
	for _, m := range msgs {
		if m.Sender == models.SenderUser {
			userMsgs++
		}
	}
	assert.Equal(t, 32, userMsgs)
	sessions, err := s.store.ListSessions(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 32)
}

// brokenStore fails message writes and reads the way a lost database does.
// With botOnly set, only bot replies fail to save.
type brokenStore struct {
	*db.Memory
	botOnly bool
}

func (b *brokenStore) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if !b.botOnly || msg.Sender == models.SenderBot {
		return models.Message{}, fmt.Errorf("append message: %w", db.ErrPersistence)
	}
	return b.Memory.AppendMessage(ctx, msg)
}

func (b *brokenStore) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if b.botOnly {
		return b.Memory.ListMessages(ctx, userID, limit)
	}
	return nil, fmt.Errorf("list messages: %w", db.ErrPersistence)
}

type countingDispatcher struct {
	reserved, scheduled, released int
}

func (c *countingDispatcher) Reserve(context.Context, string) (delivery.Slot, error) {
	c.reserved++
	return &countingSlot{d: c}, nil
}

func (c *countingDispatcher) Stop() {}

type countingSlot struct {
	d    *countingDispatcher
	used bool
}

func (c *countingSlot) Schedule(context.Context, delivery.Reply) error {
	c.used = true
	c.d.scheduled++
	return nil
}

func (c *countingSlot) Release() {
	if !c.used {
		c.used = true
		c.d.released++
	}
}

func TestPersistenceFailuresAnswer500(t *testing.T) {
	mem := db.NewMemory()
	s := newTestServerWith(t, &brokenStore{Memory: mem}, mem)
	token := s.register("Amani", "amani@example.com")
	dispatcher := &countingDispatcher{}
	s.api.Dispatcher = dispatcher

	rec := s.do(http.MethodGet, "/api/messages", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch messages", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodPost, "/api/chat", token, map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to save message", decodeBody(t, rec)["error"])
	assert.Equal(t, 0, dispatcher.scheduled)
	assert.Equal(t, dispatcher.reserved, dispatcher.released)

	rec = s.do(http.MethodGet, "/api/tracker", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to build mood tracker", decodeBody(t, rec)["error"])

	sessions, err := mem.ListSessions(context.Background(), s.userID("amani@example.com"), 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatInlineReplyFailureAnswers500(t *testing.T) {
	mem := db.NewMemory()
	s := newTestServerWith(t, &brokenStore{Memory: mem, botOnly: true}, mem)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodPost, "/api/chat", token, map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to send reply", decodeBody(t, rec)["error"])
}

func TestChatNestedMoodValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodPost, "/api/chat", token, map[string]any{"text": "hi", "mood": map[string]string{"mood": ""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "mood.mood is required", decodeBody(t, rec)["error"])

	rec = s.do(http.MethodPost, "/api/chat", token, map[string]any{"mood": map[string]string{"mood": "Happy"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Text is required", decodeBody(t, rec)["error"])
}

func TestQueryTokenAcceptedOnlyOnSocket(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Amani", "amani@example.com")

	rec := s.do(http.MethodGet, "/api/messages?token="+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Auth passes; the plain request then fails the websocket handshake.
	rec = s.do(http.MethodGet, "/api/ws?token="+token, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
