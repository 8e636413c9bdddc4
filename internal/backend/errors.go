package backend

import (
	"context"
	"time"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/pkg/metrics"
	"github.com/lk2023060901/coplay-garden-go/pkg/util/merr"
)

// TranslateError 将 SDK 层错误翻译为内部错误类型。
//
// 映射规则：
//   - CodeNotFound       -> ErrSessionNotFound
//   - CodeOutOfSync      -> ErrBackendOutOfSync（可重试，调用方应重新拉取后再试）
//   - CodeLimitExceeded  -> ErrSessionFull
//   - 其他业务错误码      -> ErrBackendRejected
//   - 非业务错误（网络等） -> ErrBackendTransport
func TranslateError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}

	apiErr, ok := onlinesvc.IsAPICodeError(err)
	if !ok {
		return merr.WrapErrBackendTransport(operation, err)
	}

	switch apiErr.Code {
	case onlinesvc.CodeNotFound:
		return merr.WrapErrSessionNotFound(operation, apiErr.Message)
	case onlinesvc.CodeOutOfSync:
		return merr.WrapErrBackendOutOfSync(operation, apiErr.Message)
	case onlinesvc.CodeLimitExceeded:
		return merr.WrapErrSessionFull(operation, apiErr.Message)
	default:
		return merr.WrapErrBackendRejected(operation, apiErr.Code, apiErr.Message)
	}
}

// Observe 上报一次远端调用的耗时。
func Observe(backendName, operation string, start time.Time) {
	metrics.BackendCallLatency.
		WithLabelValues(backendName, operation).
		Observe(float64(time.Since(start).Milliseconds()))
}
