package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameSession   = "session"
	FieldNamePlayer    = "player"
	FieldNameLobby     = "lobby"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldSession 返回一个包含会话名的 zap 字段。
func FieldSession(name string) zap.Field {
	return zap.String(FieldNameSession, name)
}

// FieldPlayer 返回一个包含玩家 ID 的 zap 字段。
func FieldPlayer(id string) zap.Field {
	return zap.String(FieldNamePlayer, id)
}

// FieldLobby 返回一个包含大厅 ID 的 zap 字段。
func FieldLobby(id string) zap.Field {
	return zap.String(FieldNameLobby, id)
}

// FieldMessage 返回一个包含消息对象的 zap 字段。
func FieldMessage(msg zapcore.ObjectMarshaler) zap.Field {
	return zap.Object("message", msg)
}
