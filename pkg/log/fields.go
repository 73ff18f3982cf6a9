package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameFormat    = "format"
	FieldNameFrameSize = "frameSize"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldFormat 标记编解码使用的格式名。
func FieldFormat(format string) zap.Field {
	return zap.String(FieldNameFormat, format)
}

func FieldFrameSize(size int) zap.Field {
	return zap.Int(FieldNameFrameSize, size)
}
