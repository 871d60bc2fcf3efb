package graphapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedhub/internal/cache"
	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/repository"
	"feedhub/internal/service"
	"feedhub/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type graphFixture struct {
	app    *fiber.App
	events *testutil.EventRecorder
	media  *service.MediaService
	store  *testutil.MemoryStore
}

type gqlResult struct {
	status int
	Data   map[string]interface{} `json:"data"`
	Errors []ResponseError        `json:"errors"`
}

func newGraphFixture(t *testing.T) *graphFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db, cache.NewStore(nil))
	creds := service.NewCredentialService("graph-test-secret-graph-test-secret-1234", "feedhub-api", time.Hour, bcrypt.MinCost)

	f := &graphFixture{
		events: &testutil.EventRecorder{},
		store:  testutil.NewMemoryStore(),
	}
	f.media = service.NewMediaService(f.store)
	posts := service.NewPostService(postRepo, userRepo, f.media, f.events, service.NewPagePolicy(2))
	users := service.NewUserService(userRepo, creds)

	schema, err := NewSchema(posts, users)
	require.NoError(t, err)

	f.app = fiber.New()
	f.app.Use(middleware.Authenticate(creds))
	f.app.Post("/graphql", Handler(schema))
	f.app.Get("/graphql", Handler(schema))
	return f
}

func (f *graphFixture) do(t *testing.T, token, query string, vars map[string]interface{}) gqlResult {
	t.Helper()
	body, err := json.Marshal(Request{Query: query, Variables: vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out gqlResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	out.status = resp.StatusCode
	return out
}

const (
	createUserMutation = `mutation($email: String!, $name: String!, $password: String!) {
		createUser(userInput: {email: $email, name: $name, password: $password}) { _id email name status }
	}`
	loginQuery = `query($email: String!, $password: String!) {
		login(email: $email, password: $password) { token userId }
	}`
	createPostMutation = `mutation($title: String!, $content: String!, $imageUrl: String!) {
		createPost(postInput: {title: $title, content: $content, imageUrl: $imageUrl}) {
			_id title imageUrl creator { _id name } createdAt
		}
	}`
)

func (f *graphFixture) signupAndLogin(t *testing.T, email, name string) (token, userID string) {
	t.Helper()
	res := f.do(t, "", createUserMutation, map[string]interface{}{"email": email, "name": name, "password": "secret"})
	require.Empty(t, res.Errors)

	res = f.do(t, "", loginQuery, map[string]interface{}{"email": email, "password": "secret"})
	require.Empty(t, res.Errors)
	login := res.Data["login"].(map[string]interface{})
	return login["token"].(string), login["userId"].(string)
}

func TestGraphQL_CreateUser(t *testing.T) {
	f := newGraphFixture(t)

	res := f.do(t, "", createUserMutation, map[string]interface{}{
		"email": "Ada@Example.com", "name": "Ada", "password": "secret",
	})

	require.Empty(t, res.Errors)
	user := res.Data["createUser"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, models.DefaultStatus, user["status"])
	assert.NotEmpty(t, user["_id"])

	res = f.do(t, "", createUserMutation, map[string]interface{}{
		"email": "ada@example.com", "name": "Ada", "password": "secret",
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusConflict, res.Errors[0].Status)
	assert.Equal(t, "User already exists!", res.Errors[0].Message)
}

func TestGraphQL_CreateUserValidation(t *testing.T) {
	f := newGraphFixture(t)

	res := f.do(t, "", createUserMutation, map[string]interface{}{
		"email": "not-an-email", "name": "Ada", "password": "abc",
	})

	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Errors[0].Status)
	require.Len(t, res.Errors[0].Data, 2)
	assert.Equal(t, "email", res.Errors[0].Data[0].Field)
	assert.Equal(t, "password", res.Errors[0].Data[1].Field)
}

func TestGraphQL_Login(t *testing.T) {
	f := newGraphFixture(t)
	token, userID := f.signupAndLogin(t, "ada@example.com", "Ada")
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, userID)

	res := f.do(t, "", loginQuery, map[string]interface{}{"email": "ada@example.com", "password": "wrong"})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, res.Errors[0].Status)
	assert.Equal(t, "Wrong password!", res.Errors[0].Message)
	assert.Nil(t, res.Data)
}

func TestGraphQL_CreatePostRequiresAuthentication(t *testing.T) {
	f := newGraphFixture(t)

	res := f.do(t, "", createPostMutation, map[string]interface{}{
		"title": "First post", "content": "Hello there", "imageUrl": "images/a.png",
	})

	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, res.Errors[0].Status)
	assert.Equal(t, "Not authenticated.", res.Errors[0].Message)
	assert.Empty(t, f.events.Events())

	res = f.do(t, "not-a-token", createPostMutation, map[string]interface{}{
		"title": "First post", "content": "Hello there", "imageUrl": "images/a.png",
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, res.Errors[0].Status)
}

func TestGraphQL_PostLifecycle(t *testing.T) {
	f := newGraphFixture(t)
	ownerToken, ownerID := f.signupAndLogin(t, "owner@example.com", "Owner")
	otherToken, _ := f.signupAndLogin(t, "other@example.com", "Other")
	imageKey := ownerID + "_a.png"
	require.NoError(t, f.store.Put(t.Context(), imageKey, bytes.NewReader([]byte("img")), 3, "image/png"))

	res := f.do(t, ownerToken, createPostMutation, map[string]interface{}{
		"title": "First post", "content": "Hello there", "imageUrl": "images/" + imageKey,
	})
	require.Empty(t, res.Errors)
	created := res.Data["createPost"].(map[string]interface{})
	postID := created["_id"].(string)
	assert.Equal(t, ownerID, created["creator"].(map[string]interface{})["_id"])
	assert.Equal(t, "Owner", created["creator"].(map[string]interface{})["name"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, created["createdAt"])

	res = f.do(t, ownerToken, `{ posts(page: 1) { totalPosts posts { _id title } } }`, nil)
	require.Empty(t, res.Errors)
	page := res.Data["posts"].(map[string]interface{})
	assert.Equal(t, float64(1), page["totalPosts"])
	assert.Len(t, page["posts"], 1)

	updateMutation := `mutation($id: ID!, $imageUrl: String!) {
		updatePost(id: $id, postInput: {title: "Edited title", content: "Edited content", imageUrl: $imageUrl}) { title imageUrl }
	}`

	res = f.do(t, otherToken, updateMutation, map[string]interface{}{"id": postID, "imageUrl": "undefined"})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusForbidden, res.Errors[0].Status)
	assert.Equal(t, "Not authorized!", res.Errors[0].Message)

	res = f.do(t, ownerToken, updateMutation, map[string]interface{}{"id": postID, "imageUrl": "undefined"})
	require.Empty(t, res.Errors)
	updated := res.Data["updatePost"].(map[string]interface{})
	assert.Equal(t, "Edited title", updated["title"])
	assert.Equal(t, "images/"+imageKey, updated["imageUrl"])

	deleteMutation := `mutation($id: ID!) { deletePost(id: $id) }`

	res = f.do(t, otherToken, deleteMutation, map[string]interface{}{"id": postID})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusForbidden, res.Errors[0].Status)

	res = f.do(t, ownerToken, deleteMutation, map[string]interface{}{"id": postID})
	require.Empty(t, res.Errors)
	assert.Equal(t, true, res.Data["deletePost"])
	f.media.Wait()
	assert.False(t, f.store.Has(imageKey))

	res = f.do(t, ownerToken, `query($id: ID!) { post(id: $id) { _id } }`, map[string]interface{}{"id": postID})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusNotFound, res.Errors[0].Status)

	assert.Equal(t, []string{service.ActionCreate, service.ActionUpdate, service.ActionDelete}, f.events.Actions())
}

func TestGraphQL_DeleteKeepsAnotherUsersImage(t *testing.T) {
	f := newGraphFixture(t)
	ownerToken, ownerID := f.signupAndLogin(t, "owner@example.com", "Owner")
	otherToken, _ := f.signupAndLogin(t, "other@example.com", "Other")
	imageKey := ownerID + "_a.png"
	require.NoError(t, f.store.Put(t.Context(), imageKey, bytes.NewReader([]byte("img")), 3, "image/png"))

	res := f.do(t, ownerToken, createPostMutation, map[string]interface{}{
		"title": "First post", "content": "Hello there", "imageUrl": "images/" + imageKey,
	})
	require.Empty(t, res.Errors)

	res = f.do(t, otherToken, createPostMutation, map[string]interface{}{
		"title": "Borrowed post", "content": "Hello there", "imageUrl": "images/" + imageKey,
	})
	require.Empty(t, res.Errors)
	borrowed := res.Data["createPost"].(map[string]interface{})["_id"].(string)

	res = f.do(t, otherToken, `mutation($id: ID!) { deletePost(id: $id) }`, map[string]interface{}{"id": borrowed})
	require.Empty(t, res.Errors)

	f.media.Wait()
	assert.True(t, f.store.Has(imageKey))
}

func TestGraphQL_UserAndStatus(t *testing.T) {
	f := newGraphFixture(t)
	token, _ := f.signupAndLogin(t, "ada@example.com", "Ada")

	res := f.do(t, token, createPostMutation, map[string]interface{}{
		"title": "First post", "content": "Hello there", "imageUrl": "images/a.png",
	})
	require.Empty(t, res.Errors)

	res = f.do(t, token, `{ user { name status password posts { title } } }`, nil)
	require.Empty(t, res.Errors)
	user := res.Data["user"].(map[string]interface{})
	assert.Equal(t, models.DefaultStatus, user["status"])
	assert.Nil(t, user["password"])
	require.Len(t, user["posts"], 1)

	res = f.do(t, token, `mutation { updateStatus(status: "Writing") { status } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, "Writing", res.Data["updateStatus"].(map[string]interface{})["status"])

	res = f.do(t, "", `{ user { name } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, res.Errors[0].Status)
}

func TestGraphQL_PostsRequireAuthentication(t *testing.T) {
	f := newGraphFixture(t)

	res := f.do(t, "", `{ posts { totalPosts } }`, nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, http.StatusUnauthorized, res.Errors[0].Status)
}

func TestGraphQL_MalformedRequests(t *testing.T) {
	f := newGraphFixture(t)

	res := f.do(t, "", `{ posts { `, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	require.NotEmpty(t, res.Errors)
	assert.Zero(t, res.Errors[0].Status)

	res = f.do(t, "", `{ unknownField }`, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	require.NotEmpty(t, res.Errors)

	res = f.do(t, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
}
