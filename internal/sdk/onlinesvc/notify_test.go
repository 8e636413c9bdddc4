package onlinesvc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type WebhookSuite struct {
	suite.Suite

	verifier *WebhookVerifier
}

func (s *WebhookSuite) SetupTest() {
	s.verifier = NewWebhookVerifier(WebhookConfig{
		SigningSecret: "test-secret",
	}, nil)
}

func (s *WebhookSuite) signedHeaders(body []byte, ts time.Time) map[string]string {
	timestamp := fmt.Sprintf("%d", ts.Unix())
	nonce := "nonce-1"
	return map[string]string{
		headerSignature: computeHMAC("test-secret", timestamp+":"+nonce+":"+string(body)),
		headerTimestamp: timestamp,
		headerNonce:     nonce,
	}
}

func (s *WebhookSuite) TestVerifyAndParse() {
	body := []byte(`{"kind":"member_status","lobby_id":"lobby-1","target_id":"player-2","status":"kicked"}`)

	n, err := s.verifier.VerifyAndParse(s.signedHeaders(body, time.Now()), body)
	s.NoError(err)
	s.Equal(NotifyMemberStatus, n.Kind)
	s.EqualValues("lobby-1", n.LobbyID)
	s.EqualValues("player-2", n.TargetID)
	s.Equal(MemberStatusKicked, n.Status)
}

func (s *WebhookSuite) TestBadSignature() {
	body := []byte(`{"kind":"lobby_updated","lobby_id":"lobby-1"}`)
	headers := s.signedHeaders(body, time.Now())
	headers[headerSignature] = "deadbeef"

	_, err := s.verifier.VerifyAndParse(headers, body)
	s.Error(err)
}

func (s *WebhookSuite) TestStaleTimestamp() {
	body := []byte(`{"kind":"lobby_updated","lobby_id":"lobby-1"}`)
	headers := s.signedHeaders(body, time.Now().Add(-time.Hour))

	_, err := s.verifier.VerifyAndParse(headers, body)
	s.Error(err)
}

func (s *WebhookSuite) TestMissingKind() {
	body := []byte(`{"lobby_id":"lobby-1"}`)

	_, err := s.verifier.VerifyAndParse(s.signedHeaders(body, time.Now()), body)
	s.Error(err)
}

func (s *WebhookSuite) TestHandlerServeHTTP() {
	var received *Notification
	handler := &WebhookHandler{
		Verifier: s.verifier,
		Handler: NotificationHandlerFunc(func(ctx context.Context, n *Notification) error {
			received = n
			return nil
		}),
	}

	body := []byte(`{"kind":"invite_received","invite_id":"inv-1","from_id":"player-9","to_id":"player-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	for k, v := range s.signedHeaders(body, time.Now()) {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(received)
	s.Equal(NotifyInviteReceived, received.Kind)
	s.EqualValues("inv-1", received.InviteID)
}

func (s *WebhookSuite) TestHandlerRejectsUnsigned() {
	handler := &WebhookHandler{
		Verifier: s.verifier,
		Handler: NotificationHandlerFunc(func(ctx context.Context, n *Notification) error {
			return nil
		}),
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	s.Equal(http.StatusForbidden, rec.Code)
}

func TestWebhook(t *testing.T) {
	suite.Run(t, new(WebhookSuite))
}
