package session

import (
	"sort"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
	"github.com/lk2023060901/coplay-garden-go/pkg/log"
	"go.uber.org/zap"
)

// 属性编解码：本地 Attr 与服务端线上形式 onlinesvc.Attribute 的互转。
//
// 编码按 key 升序输出，保证同一份属性集合总是产生相同的请求体。
// 解码遇到未知类型标签时跳过该条并记录日志，不中断整体解码。

// EncodeAttributes 将本地属性集合编码为线上传输形式。
func EncodeAttributes(attrs map[string]Attr) []onlinesvc.Attribute {
	if len(attrs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]onlinesvc.Attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, EncodeAttribute(k, attrs[k]))
	}
	return out
}

// EncodeAttribute 编码单条属性。
func EncodeAttribute(key string, attr Attr) onlinesvc.Attribute {
	wire := onlinesvc.Attribute{
		Key:        key,
		Visibility: onlinesvc.VisibilityPrivate,
	}
	if attr.Advertise {
		wire.Visibility = onlinesvc.VisibilityPublic
	}

	switch attr.Value.Type() {
	case TypeBool:
		v, _ := attr.Value.Bool()
		wire.Type = onlinesvc.AttrTypeBool
		wire.BoolValue = &v
	case TypeInt64:
		v, _ := attr.Value.Int64()
		wire.Type = onlinesvc.AttrTypeInt64
		wire.Int64Value = &v
	case TypeDouble:
		v, _ := attr.Value.Double()
		wire.Type = onlinesvc.AttrTypeDouble
		wire.DblValue = &v
	case TypeString:
		v, _ := attr.Value.String()
		wire.Type = onlinesvc.AttrTypeString
		wire.StrValue = &v
	}
	return wire
}

// DecodeAttributes 将线上传输形式解码为本地属性集合。
func DecodeAttributes(wires []onlinesvc.Attribute) map[string]Attr {
	if len(wires) == 0 {
		return nil
	}

	out := make(map[string]Attr, len(wires))
	for i := range wires {
		attr, ok := DecodeAttribute(&wires[i])
		if !ok {
			continue
		}
		out[wires[i].Key] = attr
	}
	return out
}

// DecodeAttribute 解码单条属性；类型未知或取值缺失时返回 false。
func DecodeAttribute(wire *onlinesvc.Attribute) (Attr, bool) {
	attr := Attr{
		Advertise: wire.Visibility == onlinesvc.VisibilityPublic,
	}

	switch wire.Type {
	case onlinesvc.AttrTypeBool:
		if wire.BoolValue == nil {
			return Attr{}, false
		}
		attr.Value = BoolValue(*wire.BoolValue)
	case onlinesvc.AttrTypeInt64:
		if wire.Int64Value == nil {
			return Attr{}, false
		}
		attr.Value = IntValue(*wire.Int64Value)
	case onlinesvc.AttrTypeDouble:
		if wire.DblValue == nil {
			return Attr{}, false
		}
		attr.Value = DoubleValue(*wire.DblValue)
	case onlinesvc.AttrTypeString:
		if wire.StrValue == nil {
			return Attr{}, false
		}
		attr.Value = StringValue(*wire.StrValue)
	default:
		log.Warn("skip attribute with unknown type",
			zap.String("key", wire.Key),
			zap.String("type", string(wire.Type)))
		return Attr{}, false
	}
	return attr, true
}

// EncodeFilter 将一条搜索条件编码为线上传输形式。
func EncodeFilter(key string, value Value, op onlinesvc.ComparisonOp) onlinesvc.SearchFilter {
	return onlinesvc.SearchFilter{
		Attribute: EncodeAttribute(key, Attr{Value: value, Advertise: true}),
		Op:        op,
	}
}
