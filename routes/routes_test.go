package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JuanCarrill0/Kata-Middle-BB/completion"
	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store/inmem"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

type testEnv struct {
	app     *fiber.App
	users   *inmem.Users
	courses *inmem.Courses
	modules *inmem.Modules
	badges  *inmem.Badges
	history *inmem.History
	blobs   *inmem.Blobs
	cfg     *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:   inmem.NewUsers(),
		courses: inmem.NewCourses(),
		modules: inmem.NewModules(),
		badges:  inmem.NewBadges(),
		history: inmem.NewHistory(),
		blobs:   inmem.NewBlobs(),
		cfg: &config.Config{
			ServerPort: "8080",
			AppURL:     "http://localhost:5174",
			JWTSecret:  "testsecret",
		},
	}
	completionSvc := completion.NewService(env.users, env.courses, env.badges, env.history, env.modules, zap.NewNop())

	env.app = fiber.New()
	SetupRoutes(env.app, Deps{
		Users:      env.users,
		Courses:    env.courses,
		Modules:    env.modules,
		Badges:     env.badges,
		History:    env.history,
		Blobs:      env.blobs,
		Completion: completionSvc,
		Cfg:        env.cfg,
		Log:        zap.NewNop(),
	})
	return env
}

func (env *testEnv) seedUser(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Email:    email,
		Password: string(hashed),
		Name:     "Test " + role,
		Role:     role,
	}
	require.NoError(t, env.users.Create(context.Background(), u))
	token, err := utils.GenerateJWTToken(u.ID, env.cfg)
	require.NoError(t, err)
	return u, token
}

func (env *testEnv) seedModule(t *testing.T, name string) *models.Module {
	t.Helper()
	m := &models.Module{Name: name}
	require.NoError(t, env.modules.Create(context.Background(), m))
	return m
}

func (env *testEnv) seedCourse(t *testing.T, moduleID bson.ObjectID, chapters ...string) *models.Course {
	t.Helper()
	c := &models.Course{Title: "Kubernetes Basics", Description: "Pods and deployments", Module: moduleID}
	for _, title := range chapters {
		c.Chapters = append(c.Chapters, models.Chapter{ID: bson.NewObjectID(), Title: title})
	}
	require.NoError(t, env.courses.Create(context.Background(), c))
	return c
}

func (env *testEnv) request(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]any
	if len(data) > 0 && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		require.NoError(t, json.Unmarshal(data, &parsed))
	}
	return resp.StatusCode, parsed
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.request(t, "POST", "/api/auth/register", "", map[string]string{
		"email": "New@Example.com", "password": "password123", "name": "New User",
	})
	assert.Equal(t, fiber.StatusCreated, code)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, models.RoleUser, user["role"])

	// Duplicate email, case-insensitive.
	code, body = env.request(t, "POST", "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "other", "name": "Other",
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "Email already registered", body["message"])

	code, _ = env.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body = env.request(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "new@example.com", "password": "password123",
	})
	assert.Equal(t, fiber.StatusOK, code)
	assert.NotEmpty(t, body["token"])
}

func TestCoursesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.request(t, "GET", "/api/courses/", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestCourseVisibilityBySubscription(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedModule(t, "DevOps")
	course := env.seedCourse(t, m.ID, "Intro")
	_, userToken := env.seedUser(t, "user@example.com", models.RoleUser)
	_, adminToken := env.seedUser(t, "admin@example.com", models.RoleAdmin)

	// Unsubscribed user cannot open the course; admin can.
	code, body := env.request(t, "GET", "/api/courses/"+course.ID.Hex(), userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "Not subscribed to this module", body["message"])

	code, _ = env.request(t, "GET", "/api/courses/"+course.ID.Hex(), adminToken, nil)
	assert.Equal(t, fiber.StatusOK, code)

	// Subscribe, then the course opens.
	code, _ = env.request(t, "POST", "/api/users/subscribe", userToken, map[string]string{
		"module": m.ID.Hex(),
	})
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = env.request(t, "GET", "/api/courses/"+course.ID.Hex(), userToken, nil)
	assert.Equal(t, fiber.StatusOK, code)
}

func TestCompleteChapterEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedModule(t, "DevOps")
	course := env.seedCourse(t, m.ID, "Pods", "Deployments")
	user, token := env.seedUser(t, "student@example.com", models.RoleUser)
	require.NoError(t, env.users.AddSubscription(context.Background(), user.ID, m.ID))

	base := "/api/courses/" + course.ID.Hex() + "/chapters/"

	code, body := env.request(t, "POST", base+course.Chapters[0].ID.Hex()+"/complete", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, completion.MsgChapterCompleted, body["message"])

	code, body = env.request(t, "POST", base+course.Chapters[1].ID.Hex()+"/complete", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, completion.MsgCourseCompleted, body["message"])

	snap := body["user"].(map[string]any)
	assert.Len(t, snap["completedCourses"], 1)
	assert.Len(t, snap["badges"], 1)

	// Unknown chapter id maps to 404.
	code, _ = env.request(t, "POST", base+bson.NewObjectID().Hex()+"/complete", token, nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	// History endpoints see the ledger.
	code, body = env.request(t, "GET", "/api/history/course/"+course.ID.Hex(), token, nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.NotNil(t, body["completedAt"])
	assert.Len(t, body["completedChapters"], 2)

	code, body = env.request(t, "GET", "/api/history/my-history", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["totalCourses"])
	assert.Equal(t, float64(2), stats["totalChapters"])
}

func TestCourseHistoryNotFoundWhenAbsent(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "student@example.com", models.RoleUser)

	code, _ := env.request(t, "GET", "/api/history/course/"+bson.NewObjectID().Hex(), token, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestHistoryAllIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.seedUser(t, "user@example.com", models.RoleUser)
	_, teacherToken := env.seedUser(t, "teacher@example.com", models.RoleTeacher)
	_, adminToken := env.seedUser(t, "admin@example.com", models.RoleAdmin)

	code, _ := env.request(t, "GET", "/api/history/all", userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = env.request(t, "GET", "/api/history/all", teacherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = env.request(t, "GET", "/api/history/all", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, code)
}

func TestModuleDeleteRefusedWhileCoursesExist(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedModule(t, "DevOps")
	env.seedCourse(t, m.ID, "Intro")
	_, adminToken := env.seedUser(t, "admin@example.com", models.RoleAdmin)

	code, body := env.request(t, "DELETE", "/api/modules/"+m.ID.Hex(), adminToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, body["message"], "Module has courses")

	// Empty module deletes fine.
	empty := env.seedModule(t, "Empty")
	code, _ = env.request(t, "DELETE", "/api/modules/"+empty.ID.Hex(), adminToken, nil)
	assert.Equal(t, fiber.StatusOK, code)
}

// Deleting a course must attempt every blob exactly once, tolerate
// individual blob failures, and still remove the course and its badge.
func TestDeleteCourseCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.seedModule(t, "DevOps")
	_, adminToken := env.seedUser(t, "admin@example.com", models.RoleAdmin)

	for _, key := range []string{"thumb.png", "a.pdf", "b.mp4"} {
		require.NoError(t, env.blobs.Put(ctx, key, strings.NewReader("data"), 4, "application/octet-stream"))
	}
	course := &models.Course{
		Title:     "Kubernetes Basics",
		Module:    m.ID,
		Thumbnail: "/api/files/thumb.png",
		Chapters: []models.Chapter{
			{ID: bson.NewObjectID(), Title: "Pods", Content: []models.Content{
				{Type: models.ContentPDF, URL: "/api/files/a.pdf"},
			}},
			{ID: bson.NewObjectID(), Title: "Deployments", Content: []models.Content{
				{Type: models.ContentVideo, URL: "/api/files/b.mp4"},
			}},
		},
	}
	require.NoError(t, env.courses.Create(ctx, course))
	_, err := env.badges.GetOrCreateForCourse(ctx, course)
	require.NoError(t, err)

	// One blob delete fails; the cascade keeps going.
	env.blobs.FailDeletes["a.pdf"] = true

	code, _ := env.request(t, "DELETE", "/api/courses/"+course.ID.Hex(), adminToken, nil)
	require.Equal(t, fiber.StatusOK, code)

	assert.ElementsMatch(t, []string{"thumb.png", "a.pdf", "b.mp4"}, env.blobs.Deleted)

	_, err = env.courses.GetByID(ctx, course.ID)
	assert.Error(t, err)

	badges, err := env.badges.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestFileProxyStreamsBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, token := env.seedUser(t, "user@example.com", models.RoleUser)

	content := "%PDF-1.7 fake"
	require.NoError(t, env.blobs.Put(ctx, "doc.pdf", strings.NewReader(content), int64(len(content)), "application/pdf"))

	req := httptest.NewRequest("GET", "/api/files/doc.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	// Unknown keys 404.
	req = httptest.NewRequest("GET", "/api/files/missing.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = env.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNewCourseNotifiesSubscribers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.seedModule(t, "DevOps")
	subscriber, subToken := env.seedUser(t, "sub@example.com", models.RoleUser)
	require.NoError(t, env.users.AddSubscription(ctx, subscriber.ID, m.ID))
	_, adminToken := env.seedUser(t, "admin@example.com", models.RoleAdmin)

	var buf bytes.Buffer
	mw := newMultipartBody(t, &buf, map[string]string{
		"title":       "New Course",
		"description": "Fresh content",
		"module":      m.ID.Hex(),
	})

	req := httptest.NewRequest("POST", "/api/courses/", &buf)
	req.Header.Set("Content-Type", mw)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	nreq := httptest.NewRequest("GET", "/api/users/notifications", nil)
	nreq.Header.Set("Authorization", "Bearer "+subToken)
	nresp, err := env.app.Test(nreq, -1)
	require.NoError(t, err)
	defer nresp.Body.Close()
	require.Equal(t, fiber.StatusOK, nresp.StatusCode)

	var notifications []models.Notification
	require.NoError(t, json.NewDecoder(nresp.Body).Decode(&notifications))
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "New Course")
	assert.False(t, notifications[0].Read)
	assert.Equal(t, m.ID, notifications[0].Module)
}

func TestStaffOnlyCourseCreation(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedModule(t, "DevOps")
	_, userToken := env.seedUser(t, "user@example.com", models.RoleUser)

	var buf bytes.Buffer
	mw := newMultipartBody(t, &buf, map[string]string{
		"title": "Nope", "description": "Nope", "module": m.ID.Hex(),
	})
	req := httptest.NewRequest("POST", "/api/courses/", &buf)
	req.Header.Set("Content-Type", mw)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSubscribeUnsubscribeRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedModule(t, "DevOps")
	_, token := env.seedUser(t, "user@example.com", models.RoleUser)

	code, body := env.request(t, "POST", "/api/users/subscribe", token, map[string]string{"module": m.ID.Hex()})
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["subscribedModules"], 1)

	// Subscribing twice stays a single membership.
	code, body = env.request(t, "POST", "/api/users/subscribe", token, map[string]string{"module": m.ID.Hex()})
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["subscribedModules"], 1)

	code, body = env.request(t, "POST", "/api/users/unsubscribe", token, map[string]string{"module": m.ID.Hex()})
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, body["subscribedModules"])
}

func newMultipartBody(t *testing.T, buf *bytes.Buffer, fields map[string]string) string {
	t.Helper()
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType()
}
