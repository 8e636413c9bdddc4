// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrSessionNotFound("Arena")
	errors.Wrap(err, "failed to start session")
	s.ErrorIs(err, ErrSessionNotFound)
	s.Equal(Code(ErrSessionNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))

	sameCodeErr := newCoplayError("new error", ErrSessionNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrSessionNotFound))
}

func (s *ErrSuite) TestStatus() {
	err := WrapErrSessionNotFound("Arena")
	status := StatusOf(err)
	restoredErr := Error(status)

	s.ErrorIs(err, restoredErr)
	s.Equal(int32(0), StatusOf(nil).Code)
	s.Nil(Error(Status{}))
}

func (s *ErrSuite) TestWrap() {
	s.ErrorIs(WrapErrSessionAlreadyExist("Arena", "create"), ErrSessionAlreadyExist)
	s.ErrorIs(WrapErrSessionInvalidState("Arena", "Destroying", "start"), ErrSessionInvalidState)
	s.ErrorIs(WrapErrSessionDestroying("Arena"), ErrSessionDestroying)
	s.ErrorIs(WrapErrMemberNotFound("Arena", "player-1"), ErrMemberNotFound)
	s.ErrorIs(WrapErrSearchInProgress(), ErrSearchInProgress)
	s.ErrorIs(WrapErrLobbyNotFound("lobby-9"), ErrLobbyNotFound)
	s.ErrorIs(WrapErrPlayerNotLoggedIn(0), ErrPlayerNotLoggedIn)
	s.ErrorIs(WrapErrInviteNotFound("inv-1"), ErrInviteNotFound)
	s.ErrorIs(WrapErrBackendRejected("update", 42), ErrBackendRejected)
	s.ErrorIs(WrapErrUnsupported("matchmaking"), ErrUnsupported)
}

func (s *ErrSuite) TestRetriable() {
	s.True(IsRetryableErr(ErrBackendTransport))
	s.True(IsRetryableErr(ErrServiceNotReady))
	s.False(IsRetryableErr(ErrSessionNotFound))
	s.False(IsRetryableErr(errors.New("not a coplay error")))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	s.Error(Combine(nil, err))
	s.Error(Combine(err, nil))
	s.NoError(Combine(nil, nil))
}

func (s *ErrSuite) TestCombineOnlyNil() {
	s.NoError(Combine(nil, nil))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
