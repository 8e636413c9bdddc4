package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

// 基于 bytedance/sonic 的 JSON 编解码封装。
// 统一使用与标准库兼容的配置，业务代码不应直接依赖 sonic。
var (
	json = sonic.ConfigStd

	Marshal       = json.Marshal
	Unmarshal     = json.Unmarshal
	MarshalIndent = json.MarshalIndent
	NewDecoder    = func(r io.Reader) sonic.Decoder { return json.NewDecoder(r) }
	NewEncoder    = func(w io.Writer) sonic.Encoder { return json.NewEncoder(w) }
)

// RawMessage 为延迟解析的 JSON 片段。
type RawMessage = stdjson.RawMessage
