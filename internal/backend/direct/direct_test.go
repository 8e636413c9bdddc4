package direct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/coplay-garden-go/internal/backend"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc/onlinesvctest"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

type DirectSuite struct {
	suite.Suite

	fake     *onlinesvctest.Fake
	strategy *Strategy
	ctx      context.Context
}

func (s *DirectSuite) SetupTest() {
	s.fake = onlinesvctest.New()
	s.strategy = New(s.fake, nil)
	s.ctx = context.Background()
}

func (s *DirectSuite) newSession() *session.Session {
	return session.NewSession("Game", "player-1", session.Settings{
		BucketID:             "bucket:1.0:dm",
		NumPublicConnections: 4,
		ShouldAdvertise:      true,
		AllowInvites:         true,
		Attributes: map[string]session.Attr{
			"mode": {Value: session.StringValue("dm"), Advertise: true},
		},
	})
}

func (s *DirectSuite) TestCreate() {
	sess := s.newSession()
	sess.HostAddress = "10.0.0.1:7777"

	res, err := s.strategy.Create(s.ctx, sess)
	s.NoError(err)
	s.NotEmpty(res.SessionID)
	s.Empty(res.LobbyID)
	s.Equal("10.0.0.1:7777", res.HostAddress)
	s.Equal(4, res.OpenSlots)
	s.True(res.Settings.ShouldAdvertise)
	s.True(res.Settings.Attributes["mode"].Value.Equal(session.StringValue("dm")))
}

func (s *DirectSuite) TestUpdateRequiresRemoteID() {
	sess := s.newSession()
	_, err := s.strategy.Update(s.ctx, sess, sess.Settings)
	s.ErrorIs(err, merr.ErrSessionNoRemoteID)
}

func (s *DirectSuite) TestUpdate() {
	sess := s.newSession()
	res, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)
	sess.SessionID = res.SessionID

	// 收回公开空位后会话转为不可公开搜索。
	updated := sess.Settings.Clone()
	updated.NumPublicConnections = 0
	updated.NumPrivateConnections = 4
	updated.AllowJoinViaPresence = true

	res, err = s.strategy.Update(s.ctx, sess, updated)
	s.NoError(err)
	s.False(res.Settings.ShouldAdvertise)
	s.True(res.Settings.AllowJoinViaPresence)
}

func (s *DirectSuite) TestStartEndDestroy() {
	sess := s.newSession()
	res, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)
	sess.SessionID = res.SessionID

	s.NoError(s.strategy.Start(s.ctx, sess))
	s.True(s.fake.Sessions[sess.SessionID].Started)

	s.NoError(s.strategy.End(s.ctx, sess))
	s.False(s.fake.Sessions[sess.SessionID].Started)

	s.NoError(s.strategy.Destroy(s.ctx, sess))
	s.Empty(s.fake.Sessions)

	// 远端已不存在时销毁视为成功。
	s.NoError(s.strategy.Destroy(s.ctx, sess))
}

func (s *DirectSuite) TestDestroyWithoutRemoteID() {
	s.NoError(s.strategy.Destroy(s.ctx, s.newSession()))
}

func (s *DirectSuite) TestRegisterUnregisterPlayers() {
	sess := s.newSession()
	res, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)
	sess.SessionID = res.SessionID

	players := []onlinesvc.ProductUserID{"player-1", "player-2"}
	s.NoError(s.strategy.RegisterPlayers(s.ctx, sess, players))
	s.Equal(2, s.fake.Sessions[sess.SessionID].OpenSlots)

	s.NoError(s.strategy.UnregisterPlayers(s.ctx, sess, players[:1]))
	s.Equal(3, s.fake.Sessions[sess.SessionID].OpenSlots)
}

func (s *DirectSuite) TestFindAppliesImplicitFilters() {
	sess := s.newSession()
	res, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)
	sess.SessionID = res.SessionID

	// 同 bucket 但无空位的会话应被过滤。
	full := s.newSession()
	full.Name = "Full"
	fullRes, err := s.strategy.Create(s.ctx, full)
	s.Require().NoError(err)
	full.SessionID = fullRes.SessionID
	var fullPlayers []onlinesvc.ProductUserID
	for _, p := range []onlinesvc.ProductUserID{"a", "b", "c", "d"} {
		fullPlayers = append(fullPlayers, p)
	}
	s.Require().NoError(s.strategy.RegisterPlayers(s.ctx, full, fullPlayers))

	results, err := s.strategy.Find(s.ctx, &backend.Query{
		BucketID:   "bucket:1.0:dm",
		MaxResults: 10,
	})
	s.NoError(err)
	s.Require().Len(results, 1)
	s.Equal(sess.SessionID, results[0].SessionID)
}

func (s *DirectSuite) TestFindWithAttributeFilter() {
	sess := s.newSession()
	_, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)

	results, err := s.strategy.Find(s.ctx, &backend.Query{
		BucketID:   "bucket:1.0:dm",
		MaxResults: 10,
		Filters: []backend.Filter{
			{Key: "mode", Value: session.StringValue("ctf"), Op: onlinesvc.OpEqual},
		},
	})
	s.NoError(err)
	s.Empty(results)
}

func (s *DirectSuite) TestJoin() {
	host := s.newSession()
	res, err := s.strategy.Create(s.ctx, host)
	s.Require().NoError(err)

	joiner := session.NewSession("Game", "player-2", session.Settings{NumPublicConnections: 4})
	joined, err := s.strategy.Join(s.ctx, joiner, res)
	s.NoError(err)
	s.Equal(res.SessionID, joined.SessionID)

	_, err = s.strategy.Join(s.ctx, joiner, nil)
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *DirectSuite) TestInviteFlow() {
	sess := s.newSession()
	res, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)
	sess.SessionID = res.SessionID

	s.NoError(s.strategy.SendInvite(s.ctx, sess, "player-1", []onlinesvc.ProductUserID{"player-2"}))
	s.Require().Len(s.fake.SessionInvites, 1)

	var inviteID onlinesvc.InviteID
	for id := range s.fake.SessionInvites {
		inviteID = id
	}
	got, err := s.strategy.FetchByInviteID(s.ctx, inviteID)
	s.NoError(err)
	s.Equal(sess.SessionID, got.SessionID)

	_, err = s.strategy.FetchByInviteID(s.ctx, "inv-missing")
	s.ErrorIs(err, merr.ErrInviteNotFound)
}

func (s *DirectSuite) TestFetchByID() {
	sess := s.newSession()
	res, err := s.strategy.Create(s.ctx, sess)
	s.Require().NoError(err)

	got, err := s.strategy.FetchByID(s.ctx, string(res.SessionID))
	s.NoError(err)
	s.Equal(res.SessionID, got.SessionID)

	_, err = s.strategy.FetchByID(s.ctx, "sess-missing")
	s.Error(err)

	_, err = s.strategy.FetchByID(s.ctx, "")
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *DirectSuite) TestMemberManagementUnsupported() {
	sess := s.newSession()
	s.ErrorIs(s.strategy.KickMember(s.ctx, sess, "player-2"), merr.ErrUnsupported)
	s.ErrorIs(s.strategy.PromoteMember(s.ctx, sess, "player-2"), merr.ErrUnsupported)
}

func TestDirect(t *testing.T) {
	suite.Run(t, new(DirectSuite))
}
