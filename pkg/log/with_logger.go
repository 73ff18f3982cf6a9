package log

import "go.uber.org/atomic"

var (
	_ WithLogger   = &Binder{}
	_ LoggerBinder = &Binder{}
)

type WithLogger interface {
	Logger() *MLogger
}

type LoggerBinder interface {
	SetLogger(logger *MLogger)
}

// Binder 嵌入到组件中，持有组件自己的 Logger；未绑定时退回全局 Logger。
type Binder struct {
	logger atomic.Pointer[MLogger]
}

func (w *Binder) SetLogger(logger *MLogger) {
	w.logger.Store(logger)
}

func (w *Binder) Logger() *MLogger {
	if l := w.logger.Load(); l != nil {
		return l
	}
	return With()
}
