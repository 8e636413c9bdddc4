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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Status 为跨组件传递的最小结果描述。
// 完成事件回调通过它向订阅方暴露失败原因，Code 为 0 表示成功。
type Status struct {
	Code int32  `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case coplayError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(coplayError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

// StatusOf 根据给定错误构造 Status。
// 当 err 为空时，返回一个表示成功的 Status。
func StatusOf(err error) Status {
	if err == nil {
		return Status{}
	}
	return Status{
		Code: Code(err),
		Msg:  previousLastError(err).Error(),
	}
}

func previousLastError(err error) error {
	lastErr := err
	for {
		nextErr := errors.Unwrap(err)
		if nextErr == nil {
			break
		}
		lastErr = err
		err = nextErr
	}
	return lastErr
}

func Ok(status Status) bool {
	return status.Code == 0
}

// Error returns a error according to the given status,
// returns nil if the status is a success status
func Error(status Status) error {
	if Ok(status) {
		return nil
	}

	// Status 仅包含 code 与 msg，这里统一按系统错误处理。
	return newCoplayError(status.Msg, status.Code, false)
}

func GetErrorType(err error) ErrorType {
	if merr, ok := err.(coplayError); ok {
		return merr.errType
	}

	return SystemError
}

func WrapErrAsInputError(err error) error {
	if merr, ok := err.(coplayError); ok {
		WithErrorType(InputError)(&merr)
		return merr
	}
	return err
}

// Service 相关错误封装。
func WrapErrServiceNotReady(component string, msg ...string) error {
	err := wrapFields(ErrServiceNotReady, value("component", component))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrServiceInternal(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceInternal, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Session 相关错误封装。
func WrapErrSessionNotFound(session any, msg ...string) error {
	err := wrapFields(ErrSessionNotFound, value("session", session))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSessionAlreadyExist(session any, msg ...string) error {
	err := wrapFields(ErrSessionAlreadyExist, value("session", session))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSessionInvalidState(session any, state any, operation string, msg ...string) error {
	err := wrapFields(ErrSessionInvalidState,
		value("session", session),
		value("state", state),
		value("operation", operation),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSessionDestroying(session any, msg ...string) error {
	err := wrapFields(ErrSessionDestroying, value("session", session))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSessionNoRemoteID(session any, msg ...string) error {
	err := wrapFields(ErrSessionNoRemoteID, value("session", session))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSessionFull(session any, msg ...string) error {
	err := wrapFields(ErrSessionFull, value("session", session))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSessionPresenceBusy(session any, holder any, msg ...string) error {
	err := wrapFields(ErrSessionPresenceBusy,
		value("session", session),
		value("holder", holder),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Member 相关错误封装。
func WrapErrMemberNotFound(session any, player any, msg ...string) error {
	err := wrapFields(ErrMemberNotFound,
		value("session", session),
		value("player", player),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrMemberAlreadyExist(session any, player any, msg ...string) error {
	err := wrapFields(ErrMemberAlreadyExist,
		value("session", session),
		value("player", player),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Search 相关错误封装。
func WrapErrSearchInProgress(msg ...string) error {
	err := error(ErrSearchInProgress)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSearchNotFound(id any, msg ...string) error {
	err := wrapFields(ErrSearchNotFound, value("id", id))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Lobby 相关错误封装。
func WrapErrLobbyNotFound(lobby any, msg ...string) error {
	err := wrapFields(ErrLobbyNotFound, value("lobby", lobby))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Player 相关错误封装。
func WrapErrPlayerNotLoggedIn(player any, msg ...string) error {
	err := wrapFields(ErrPlayerNotLoggedIn, value("player", player))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPlayerNotFound(player any, msg ...string) error {
	err := wrapFields(ErrPlayerNotFound, value("player", player))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Invite 相关错误封装。
func WrapErrInviteNotFound(invite any, msg ...string) error {
	err := wrapFields(ErrInviteNotFound, value("invite", invite))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Backend 相关错误封装。
func WrapErrBackendRejected(operation string, code any, msg ...string) error {
	err := wrapFields(ErrBackendRejected,
		value("operation", operation),
		value("code", code),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrBackendOutOfSync(operation string, msg ...string) error {
	err := wrapFields(ErrBackendOutOfSync, value("operation", operation))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrBackendTransport(operation string, cause error, msg ...string) error {
	err := wrapFieldsWithDesc(ErrBackendTransport, cause.Error(), value("operation", operation))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnsupported(operation string, msg ...string) error {
	err := wrapFields(ErrUnsupported, value("operation", operation))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Parameter 相关错误封装。
func WrapErrParameterInvalidMsg(fmtMsg string, args ...any) error {
	return wrapFieldsWithDesc(ErrParameterInvalid, fmt.Sprintf(fmtMsg, args...))
}

func WrapErrParameterMissing(param any, msg ...string) error {
	err := wrapFields(ErrParameterMissing, value("missing_param", param))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func wrapFields(err coplayError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err coplayError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
