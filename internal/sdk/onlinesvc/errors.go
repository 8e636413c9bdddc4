package onlinesvc

import (
	"errors"
	"fmt"
)

// 服务端统一返回结构中的业务错误码。
const (
	CodeInvalidRequest = 10400 // 请求参数不合法
	CodeNoPermission   = 10403 // 调用方无权执行该操作
	CodeNotFound       = 10404 // 目标会话 / 大厅 / 邀请不存在
	CodeOutOfSync      = 10409 // 本地视图与服务端状态不一致，需要重新拉取
	CodeLimitExceeded  = 10410 // 人数或频率超限
)

// Error 表示由在线服务返回的业务错误。
//
// 所有接口返回统一结构体，其中包含 err_code/err_msg 字段。
// SDK 将其包装为 Error 便于统一处理和上报。
type Error struct {
	Code    int
	Message string

	RawBody []byte
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("onlinesvc: err_code=%d err_msg=%s", e.Code, e.Message)
	}
	return fmt.Sprintf("onlinesvc: err_code=%d", e.Code)
}

// IsAPICodeError 判断错误是否为在线服务返回的业务错误。
func IsAPICodeError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNotFound 判断错误是否表示目标资源不存在。
func IsNotFound(err error) bool {
	e, ok := IsAPICodeError(err)
	return ok && e.Code == CodeNotFound
}

// IsOutOfSync 判断错误是否表示本地视图已过期。
func IsOutOfSync(err error) bool {
	e, ok := IsAPICodeError(err)
	return ok && e.Code == CodeOutOfSync
}

// IsLimitExceeded 判断错误是否表示人数或频率超限。
func IsLimitExceeded(err error) bool {
	e, ok := IsAPICodeError(err)
	return ok && e.Code == CodeLimitExceeded
}
