package server

import (
	"fmt"
	"net/http"
	"testing"

	"readit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	api := newTestAPI(t)
	alice := api.user("alice")
	api.sub(alice, "golang")

	post := api.post(alice, "golang", "Hello World")
	assert.NotEmpty(t, post.Identifier)
	assert.Equal(t, "hello_world", post.Slug)
	assert.Equal(t, "golang", post.SubName)
	assert.Equal(t, "alice", post.Username)
	assert.Equal(t, "/r/golang/"+post.Identifier+"/hello_world", post.URL)
	assert.Zero(t, post.VoteScore)
	assert.Zero(t, post.CommentCount)
	assert.Nil(t, post.UserVote)

	tests := []struct {
		name   string
		token  string
		body   map[string]string
		status int
	}{
		{"anonymous", "", map[string]string{"sub": "golang", "title": "x"}, http.StatusUnauthorized},
		{"missing title", alice, map[string]string{"sub": "golang"}, http.StatusBadRequest},
		{"unknown sub", alice, map[string]string{"sub": "nowhere", "title": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(http.MethodPost, "/api/posts", tt.body, tt.token)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGetPosts_Pagination(t *testing.T) {
	api := newTestAPI(t)
	alice := api.user("alice")
	api.sub(alice, "golang")
	for i := 0; i < 5; i++ {
		api.post(alice, "golang", fmt.Sprintf("post %d", i))
	}

	resp := api.do(http.MethodGet, "/api/posts?page=0&count=2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[[]models.PostView](t, resp)
	require.Len(t, first, 2)
	assert.Equal(t, "post 4", first[0].Title)

	resp = api.do(http.MethodGet, "/api/posts?page=2&count=2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	last := decode[[]models.PostView](t, resp)
	require.Len(t, last, 1)
	assert.Equal(t, "post 0", last[0].Title)

	resp = api.do(http.MethodGet, "/api/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.PostView](t, resp), 5)

	resp = api.do(http.MethodGet, "/api/posts?page=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPost(t *testing.T) {
	api := newTestAPI(t)
	alice := api.user("alice")
	api.sub(alice, "golang")
	post := api.post(alice, "golang", "Hello World")

	resp := api.do(http.MethodGet, postPath(post), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[models.PostView](t, resp)
	assert.Equal(t, post.Identifier, view.Identifier)
	require.NotNil(t, view.Sub)
	assert.Equal(t, "golang", view.Sub.Name)

	resp = api.do(http.MethodGet, "/api/posts/"+post.Identifier+"/wrong_slug", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeNotFound, body.Code)
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	api := newTestAPI(t)
	alice := api.user("alice")
	bob := api.user("bob")
	api.sub(alice, "golang")
	post := api.post(alice, "golang", "Hello World")
	api.comment(bob, post, "nice")
	api.do(http.MethodPost, "/api/votes", vote(post.Identifier, post.Slug, 1), bob)

	resp := api.do(http.MethodDelete, postPath(post), nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(http.MethodDelete, postPath(post), nil, bob)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, decode[models.ErrorResponse](t, resp).Code)

	resp = api.do(http.MethodDelete, postPath(post), nil, alice)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.do(http.MethodGet, postPath(post), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var votes, comments int64
	require.NoError(t, api.srv.db.Model(&models.Vote{}).Count(&votes).Error)
	require.NoError(t, api.srv.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, votes)
	assert.Zero(t, comments)
}

func TestComments(t *testing.T) {
	api := newTestAPI(t)
	alice := api.user("alice")
	bob := api.user("bob")
	api.sub(alice, "golang")
	post := api.post(alice, "golang", "Hello World")

	first := api.comment(bob, post, "first")
	second := api.comment(alice, post, "second")
	assert.Equal(t, "bob", first.Username)
	assert.Equal(t, post.Identifier, first.PostIdentifier)
	assert.Nil(t, first.UserVote)

	body := vote(post.Identifier, post.Slug, 1)
	body["commentIdentifier"] = first.Identifier
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/votes", body, alice).StatusCode)

	resp := api.do(http.MethodGet, postPath(post)+"/comments", nil, alice)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decode[[]models.CommentView](t, resp)
	require.Len(t, comments, 2)
	assert.Equal(t, second.Identifier, comments[0].Identifier)
	assert.Equal(t, first.Identifier, comments[1].Identifier)
	assert.EqualValues(t, 1, comments[1].VoteScore)
	require.NotNil(t, comments[1].UserVote)
	assert.Nil(t, comments[0].UserVote)

	resp = api.do(http.MethodPost, postPath(post)+"/comments", map[string]string{"body": "  "}, alice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.do(http.MethodGet, "/api/posts/missing/slug/comments", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
