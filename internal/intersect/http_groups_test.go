package intersect

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func groupRouter(srv *Server) chi.Router {
	r := chi.NewRouter()
	r.Post("/groups", srv.handleCreateGroup)
	r.Get("/groups", srv.handleListGroups)
	r.Get("/groups/{groupID}", srv.handleGetGroup)
	r.Post("/groups/{groupID}/join", srv.handleJoinGroup)
	return r
}

func TestHandleCreateGroup(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		created := &Group{ID: "g1", Name: "Road Trip", HostUserID: "user1", MemberIDs: []string{"user1"}}
		mockStore.On("CreateGroup", mock.Anything, "Road Trip", "user1").Return(created, nil)

		body := bytes.NewBufferString(`{"name":"Road Trip"}`)
		req := newRequestWithUser("POST", "/groups", body, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp Group
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "g1", resp.ID)
		assert.Equal(t, "Road Trip", resp.Name)
		assert.Equal(t, []string{"user1"}, resp.MemberIDs)
		mockStore.AssertExpectations(t)
	})

	t.Run("name is trimmed", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		created := &Group{ID: "g1", Name: "Road Trip", HostUserID: "user1", MemberIDs: []string{"user1"}}
		mockStore.On("CreateGroup", mock.Anything, "Road Trip", "user1").Return(created, nil)

		body := bytes.NewBufferString(`{"name":"  Road Trip  "}`)
		req := newRequestWithUser("POST", "/groups", body, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockStore.AssertExpectations(t)
	})

	t.Run("missing name", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		body := bytes.NewBufferString(`{"name":"   "}`)
		req := newRequestWithUser("POST", "/groups", body, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		body := bytes.NewBufferString(`{bad json`)
		req := newRequestWithUser("POST", "/groups", body, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("CreateGroup", mock.Anything, "Road Trip", "user1").Return(nil, errors.New("db down"))

		body := bytes.NewBufferString(`{"name":"Road Trip"}`)
		req := newRequestWithUser("POST", "/groups", body, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleListGroups(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		summaries := []GroupSummary{
			{ID: "g1", Name: "Road Trip", MemberCount: 2, IsHost: true},
			{ID: "g2", Name: "Gym", MemberCount: 5, IsHost: false},
		}
		mockStore.On("ListGroupsForUser", mock.Anything, "user1").Return(summaries, nil)

		req := newRequestWithUser("GET", "/groups", nil, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Groups []GroupSummary `json:"groups"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Groups, 2)
		assert.Equal(t, "g1", resp.Groups[0].ID)
		assert.True(t, resp.Groups[0].IsHost)
	})

	t.Run("no groups yet", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("ListGroupsForUser", mock.Anything, "user1").Return([]GroupSummary{}, nil)

		req := newRequestWithUser("GET", "/groups", nil, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Groups []GroupSummary `json:"groups"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotNil(t, resp.Groups)
		assert.Len(t, resp.Groups, 0)
	})
}

func TestHandleGetGroup(t *testing.T) {
	t.Run("success with member status", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "g1").Return(testGroup(), nil)
		mockStore.On("GetLikedSongIDs", mock.Anything, "user1").Return([]string{"A", "B", "C"}, nil)
		mockStore.On("GetLikedSongIDs", mock.Anything, "user2").Return(nil, ErrNotFound)

		req := newRequestWithUser("GET", "/groups/g1", nil, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			ID          string         `json:"id"`
			IsHost      bool           `json:"is_host"`
			MemberCount int            `json:"member_count"`
			Members     []MemberStatus `json:"members"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "g1", resp.ID)
		assert.True(t, resp.IsHost)
		assert.Equal(t, 2, resp.MemberCount)
		assert.Equal(t, []MemberStatus{
			{UserID: "user1", IsHost: true, Synced: true, LikedCount: 3},
			{UserID: "user2", IsHost: false, Synced: false, LikedCount: 0},
		}, resp.Members)
	})

	t.Run("non member forbidden", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "g1").Return(testGroup(), nil)

		req := newRequestWithUser("GET", "/groups/g1", nil, "intruder")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "missing").Return(nil, ErrNotFound)

		req := newRequestWithUser("GET", "/groups/missing", nil, "user1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleJoinGroup(t *testing.T) {
	t.Run("new member joins", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "g1").Return(testGroup(), nil)
		mockStore.On("AddMember", mock.Anything, "g1", "user3").Return(nil)

		req := newRequestWithUser("POST", "/groups/g1/join", nil, "user3")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			ID          string `json:"id"`
			MemberCount int    `json:"member_count"`
			Joined      bool   `json:"joined"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "g1", resp.ID)
		assert.Equal(t, 3, resp.MemberCount)
		assert.True(t, resp.Joined)
		mockStore.AssertExpectations(t)
	})

	t.Run("joining twice is a no-op", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "g1").Return(testGroup(), nil)

		req := newRequestWithUser("POST", "/groups/g1/join", nil, "user2")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			MemberCount int  `json:"member_count"`
			Joined      bool `json:"joined"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.MemberCount)
		assert.False(t, resp.Joined)
		mockStore.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("group not found", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "missing").Return(nil, ErrNotFound)

		req := newRequestWithUser("POST", "/groups/missing/join", nil, "user3")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("group deleted between load and join", func(t *testing.T) {
		mockStore := new(MockStore)
		srv, _ := newTestServer(mockStore, nil, nil)
		r := groupRouter(srv)

		mockStore.On("GetGroup", mock.Anything, "g1").Return(testGroup(), nil)
		mockStore.On("AddMember", mock.Anything, "g1", "user3").Return(ErrNotFound)

		req := newRequestWithUser("POST", "/groups/g1/join", nil, "user3")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
