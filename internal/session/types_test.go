package session

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

type SessionSuite struct {
	suite.Suite
}

func (s *SessionSuite) newSettings() Settings {
	return Settings{
		BucketID:              "bucket:1.0:dm",
		NumPublicConnections:  2,
		NumPrivateConnections: 1,
		ShouldAdvertise:       true,
		AllowInvites:          true,
	}
}

func (s *SessionSuite) TestNewSession() {
	sess := NewSession("Game", "player-1", s.newSettings())

	s.Equal(StateCreating, sess.State)
	s.Equal(2, sess.NumOpenPublicConnections)
	s.Equal(1, sess.NumOpenPrivateConnections)
	s.Equal(0, sess.NumRegisteredPlayers())
	s.False(sess.HasRemoteID())
}

func (s *SessionSuite) TestRegisterPlayerConsumesPublicSlot() {
	sess := NewSession("Game", "player-1", s.newSettings())

	changed, err := sess.RegisterPlayer("player-1", false)
	s.NoError(err)
	s.True(changed)
	s.Equal(1, sess.NumOpenPublicConnections)
	s.Equal(1, sess.NumOpenPrivateConnections)
	s.True(sess.IsPlayerRegistered("player-1"))
}

func (s *SessionSuite) TestRegisterPlayerIdempotent() {
	sess := NewSession("Game", "player-1", s.newSettings())

	changed, err := sess.RegisterPlayer("player-1", false)
	s.NoError(err)
	s.True(changed)

	changed, err = sess.RegisterPlayer("player-1", false)
	s.NoError(err)
	s.False(changed)
	s.Equal(1, sess.NumOpenPublicConnections)
}

func (s *SessionSuite) TestInvitedPlayerConsumesPrivateSlot() {
	sess := NewSession("Game", "player-1", s.newSettings())

	changed, err := sess.RegisterPlayer("player-2", true)
	s.NoError(err)
	s.True(changed)
	s.Equal(2, sess.NumOpenPublicConnections)
	s.Equal(0, sess.NumOpenPrivateConnections)
}

func (s *SessionSuite) TestRegisterPlayerFull() {
	settings := s.newSettings()
	settings.NumPublicConnections = 1
	settings.NumPrivateConnections = 0
	sess := NewSession("Game", "player-1", settings)

	_, err := sess.RegisterPlayer("player-1", false)
	s.NoError(err)

	_, err = sess.RegisterPlayer("player-2", false)
	s.ErrorIs(err, merr.ErrSessionFull)
	s.False(sess.IsPlayerRegistered("player-2"))
}

func (s *SessionSuite) TestUnregisterRestoresSlot() {
	sess := NewSession("Game", "player-1", s.newSettings())

	_, err := sess.RegisterPlayer("player-2", true)
	s.NoError(err)
	_, err = sess.RegisterPlayer("player-3", false)
	s.NoError(err)

	s.True(sess.UnregisterPlayer("player-2"))
	s.Equal(1, sess.NumOpenPrivateConnections)

	s.True(sess.UnregisterPlayer("player-3"))
	s.Equal(2, sess.NumOpenPublicConnections)

	// 未注册玩家不产生变更。
	s.False(sess.UnregisterPlayer("player-9"))
}

func (s *SessionSuite) TestSlotInvariants() {
	sess := NewSession("Game", "player-1", s.newSettings())

	// 反复注册注销后空位计数不越界。
	for i := 0; i < 3; i++ {
		_, err := sess.RegisterPlayer("player-2", false)
		s.NoError(err)
		sess.UnregisterPlayer("player-2")
	}
	s.Equal(2, sess.NumOpenPublicConnections)
	s.Equal(1, sess.NumOpenPrivateConnections)
	s.GreaterOrEqual(sess.NumOpenPublicConnections, 0)
	s.LessOrEqual(sess.NumOpenPublicConnections, sess.Settings.NumPublicConnections)
}

func (s *SessionSuite) TestSyncRegisteredPlayers() {
	sess := NewSession("Game", "player-1", s.newSettings())

	sess.SyncRegisteredPlayers([]onlinesvc.ProductUserID{"player-1", "player-2"})
	s.Equal(2, sess.NumRegisteredPlayers())
	s.True(sess.IsPlayerRegistered("player-1"))
	s.True(sess.IsPlayerRegistered("player-2"))
	// 剩余 1 个空位，优先计入私有池之外的公有池上限内。
	s.Equal(1, sess.NumOpenPublicConnections+sess.NumOpenPrivateConnections)
}

func (s *SessionSuite) TestStateString() {
	s.Equal("NoSession", StateNoSession.String())
	s.Equal("Pending", StatePending.String())
	s.Equal("InProgress", StateInProgress.String())
	s.Equal("Destroying", StateDestroying.String())
}

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}
