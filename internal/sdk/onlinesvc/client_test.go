package onlinesvc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/coplay-garden-go/internal/json"
)

type ClientSuite struct {
	suite.Suite

	server     *httptest.Server
	tokenCalls atomic.Int64

	// handler 由各用例设置，处理除 /v1/oauth/token 以外的请求。
	handler func(w http.ResponseWriter, r *http.Request, body []byte)
}

func (s *ClientSuite) SetupTest() {
	s.tokenCalls.Store(0)
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()

		if r.URL.Path == "/v1/oauth/token" {
			s.tokenCalls.Add(1)
			writeEnvelope(w, 0, "", map[string]any{
				"access_token": "test-token",
				"expires_in":   3600,
			})
			return
		}

		s.Equal("Bearer test-token", r.Header.Get("Authorization"))
		s.Equal("prod-1", r.Header.Get("X-Product-Id"))
		s.Equal("deploy-1", r.Header.Get("X-Deployment-Id"))

		if s.handler != nil {
			s.handler(w, r, body)
			return
		}
		writeEnvelope(w, 0, "", nil)
	}))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) newClient() *Client {
	cli, err := NewClient(Config{
		ProductID:    "prod-1",
		DeploymentID: "deploy-1",
		ClientID:     "client-1",
		ClientSecret: "secret",
	}, WithBaseURL(s.server.URL))
	s.Require().NoError(err)
	return cli
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	resp := map[string]any{
		"err_code": code,
		"err_msg":  msg,
	}
	if raw != nil {
		resp["data"] = raw
	}
	body, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *ClientSuite) TestNewClientValidation() {
	_, err := NewClient(Config{})
	s.Error(err)

	_, err = NewClient(Config{ProductID: "p", DeploymentID: "d"})
	s.Error(err)
}

func (s *ClientSuite) TestTokenCached() {
	cli := s.newClient()
	ctx := context.Background()

	s.NoError(cli.StartSession(ctx, "sess-1"))
	s.NoError(cli.EndSession(ctx, "sess-1"))

	// 第二次调用应复用缓存的 token。
	s.EqualValues(1, s.tokenCalls.Load())
}

func (s *ClientSuite) TestCreateSession() {
	s.handler = func(w http.ResponseWriter, r *http.Request, body []byte) {
		s.Equal("/v1/sessions/create", r.URL.Path)

		var req CreateSessionRequest
		s.NoError(json.Unmarshal(body, &req))
		s.Equal("bucket:1.0:dm", req.BucketID)
		s.Equal(4, req.MaxPlayers)

		writeEnvelope(w, 0, "", &SessionInfo{
			SessionID:  "sess-1",
			BucketID:   req.BucketID,
			OwnerID:    req.HostPlayerID,
			MaxPlayers: req.MaxPlayers,
			OpenSlots:  req.MaxPlayers - 1,
		})
	}

	cli := s.newClient()
	info, err := cli.CreateSession(context.Background(), &CreateSessionRequest{
		BucketID:        "bucket:1.0:dm",
		HostPlayerID:    "player-1",
		MaxPlayers:      4,
		PermissionLevel: PermissionPublicAdvertised,
	})
	s.NoError(err)
	s.EqualValues("sess-1", info.SessionID)
	s.Equal(3, info.OpenSlots)
}

func (s *ClientSuite) TestBusinessError() {
	s.handler = func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeEnvelope(w, CodeNotFound, "session not found", nil)
	}

	cli := s.newClient()
	_, err := cli.GetSessionByID(context.Background(), "missing")
	s.Error(err)

	apiErr, ok := IsAPICodeError(err)
	s.True(ok)
	s.Equal(CodeNotFound, apiErr.Code)
	s.True(IsNotFound(err))
	s.False(IsOutOfSync(err))
}

func (s *ClientSuite) TestRetryOnServerError() {
	var calls atomic.Int64
	s.handler = func(w http.ResponseWriter, r *http.Request, body []byte) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeEnvelope(w, 0, "", nil)
	}

	cli := s.newClient()
	s.NoError(cli.DestroySession(context.Background(), "sess-1"))
	s.EqualValues(2, calls.Load())
}

func (s *ClientSuite) TestNoRetryOnClientError() {
	var calls atomic.Int64
	s.handler = func(w http.ResponseWriter, r *http.Request, body []byte) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}

	cli := s.newClient()
	s.Error(cli.DestroySession(context.Background(), "sess-1"))
	s.EqualValues(1, calls.Load())
}

func (s *ClientSuite) TestSearchSessions() {
	s.handler = func(w http.ResponseWriter, r *http.Request, body []byte) {
		s.Equal("/v1/sessions/search", r.URL.Path)

		var req SearchSessionsRequest
		s.NoError(json.Unmarshal(body, &req))
		s.Equal(10, req.MaxResults)
		s.Len(req.Filters, 1)
		s.Equal(OpGreaterOrEqual, req.Filters[0].Op)

		writeEnvelope(w, 0, "", map[string]any{
			"sessions": []*SessionInfo{
				{SessionID: "sess-1", OpenSlots: 2},
				{SessionID: "sess-2", OpenSlots: 1},
			},
		})
	}

	cli := s.newClient()
	one := int64(1)
	results, err := cli.SearchSessions(context.Background(), &SearchSessionsRequest{
		MaxResults: 10,
		Filters: []SearchFilter{{
			Attribute: Attribute{Key: "minslotsavailable", Type: AttrTypeInt64, Int64Value: &one},
			Op:        OpGreaterOrEqual,
		}},
	})
	s.NoError(err)
	s.Len(results, 2)
}

func TestClient(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}
