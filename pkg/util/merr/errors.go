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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Service related
	ErrServiceNotReady    = newCoplayError("service not ready", 1, true) // This indicates the platform SDK is still in init
	ErrServiceUnavailable = newCoplayError("service unavailable", 2, true)
	ErrServiceInternal    = newCoplayError("service internal error", 3, false)

	// Session related
	ErrSessionNotFound     = newCoplayError("session not found", 100, false)
	ErrSessionAlreadyExist = newCoplayError("session already exists", 101, false)
	ErrSessionInvalidState = newCoplayError("operation not valid for session state", 102, false)
	ErrSessionDestroying   = newCoplayError("session already being destroyed", 103, false)
	ErrSessionNoRemoteID   = newCoplayError("session has no remote id yet", 104, true)
	ErrSessionFull         = newCoplayError("session has no open slot", 105, false)
	ErrSessionPresenceBusy = newCoplayError("another presence session is already active", 106, false)

	// Member related
	ErrMemberNotFound     = newCoplayError("session member not found", 200, false)
	ErrMemberAlreadyExist = newCoplayError("session member already registered", 201, false)

	// Search related
	ErrSearchInProgress = newCoplayError("a search is already in progress", 300, false)
	ErrSearchNotFound   = newCoplayError("no search result for the given id", 301, false)
	ErrSearchInvalid    = newCoplayError("search result no longer valid", 302, false)

	// Lobby related
	ErrLobbyNotFound      = newCoplayError("lobby not found", 400, false)
	ErrLobbyDetailExpired = newCoplayError("lobby detail handle expired", 401, false)

	// Player/identity related
	ErrPlayerNotLoggedIn = newCoplayError("local player not logged in", 500, false)
	ErrPlayerNotFound    = newCoplayError("player not found", 501, false)

	// Invite related
	ErrInviteNotFound = newCoplayError("invite not found", 600, false)

	// Backend related
	ErrBackendRejected  = newCoplayError("backend rejected the request", 700, false)
	ErrBackendOutOfSync = newCoplayError("backend state out of sync", 701, true)
	ErrBackendTransport = newCoplayError("backend transport failed", 702, true)

	// Feature related
	ErrUnsupported = newCoplayError("operation not supported", 800, false)

	// Parameter related
	ErrParameterInvalid = newCoplayError("invalid parameter", 900, false)
	ErrParameterMissing = newCoplayError("missing parameter", 901, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to coplayError
	errUnexpected = newCoplayError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*coplayError)

func WithDetail(detail string) errorOption {
	return func(err *coplayError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *coplayError) {
		err.errType = etype
	}
}

type coplayError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newCoplayError(msg string, code int32, retriable bool, options ...errorOption) coplayError {
	err := coplayError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e coplayError) code() int32 {
	return e.errCode
}

func (e coplayError) Error() string {
	return e.msg
}

func (e coplayError) Detail() string {
	return e.detail
}

func (e coplayError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(coplayError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
