package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/internal/session"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

type BackendSuite struct {
	suite.Suite
}

func (s *BackendSuite) TestPermissionLevelOf() {
	// 有公开空位即公开可搜索，与 ShouldAdvertise 无关。
	s.Equal(onlinesvc.PermissionPublicAdvertised, PermissionLevelOf(session.Settings{
		NumPublicConnections: 2,
	}))
	s.Equal(onlinesvc.PermissionPublicAdvertised, PermissionLevelOf(session.Settings{
		NumPublicConnections: 4,
		ShouldAdvertise:      true,
		AllowJoinViaPresence: true,
	}))
	s.Equal(onlinesvc.PermissionJoinViaPresence, PermissionLevelOf(session.Settings{
		NumPrivateConnections: 2,
		AllowJoinViaPresence:  true,
	}))
	s.Equal(onlinesvc.PermissionInviteOnly, PermissionLevelOf(session.Settings{
		NumPrivateConnections: 2,
	}))
	s.Equal(onlinesvc.PermissionInviteOnly, PermissionLevelOf(session.Settings{}))
}

func (s *BackendSuite) TestEncodeQueryFiltersAppendsImplicit() {
	filters := EncodeQueryFilters(&Query{
		BucketID: "bucket:1.0:dm",
		Filters: []Filter{
			{Key: "mode", Value: session.StringValue("ctf"), Op: onlinesvc.OpEqual},
		},
	})

	s.Require().Len(filters, 3)
	s.Equal("mode", filters[0].Attribute.Key)
	s.Equal(AttrKeyBucket, filters[1].Attribute.Key)
	s.Equal("bucket:1.0:dm", *filters[1].Attribute.StrValue)
	s.Equal(AttrKeyMinSlots, filters[2].Attribute.Key)
	s.Equal(onlinesvc.OpGreaterOrEqual, filters[2].Op)
	s.EqualValues(1, *filters[2].Attribute.Int64Value)
}

func (s *BackendSuite) TestEncodeQueryFiltersWithoutBucket() {
	filters := EncodeQueryFilters(&Query{})
	s.Require().Len(filters, 1)
	s.Equal(AttrKeyMinSlots, filters[0].Attribute.Key)
}

func (s *BackendSuite) TestTranslateError() {
	s.NoError(TranslateError("op", nil))

	s.ErrorIs(TranslateError("op", &onlinesvc.Error{Code: onlinesvc.CodeNotFound}),
		merr.ErrSessionNotFound)
	s.ErrorIs(TranslateError("op", &onlinesvc.Error{Code: onlinesvc.CodeOutOfSync}),
		merr.ErrBackendOutOfSync)
	s.ErrorIs(TranslateError("op", &onlinesvc.Error{Code: onlinesvc.CodeLimitExceeded}),
		merr.ErrSessionFull)
	s.ErrorIs(TranslateError("op", &onlinesvc.Error{Code: onlinesvc.CodeNoPermission}),
		merr.ErrBackendRejected)
	s.ErrorIs(TranslateError("op", errors.New("connection refused")),
		merr.ErrBackendTransport)
}

func (s *BackendSuite) TestOutOfSyncIsRetriable() {
	err := TranslateError("op", &onlinesvc.Error{Code: onlinesvc.CodeOutOfSync})
	s.True(merr.IsRetryableErr(err))
}

func TestBackend(t *testing.T) {
	suite.Run(t, new(BackendSuite))
}
