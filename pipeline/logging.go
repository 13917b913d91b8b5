package pipeline

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger sets the destination for pipeline logs. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l.Named("pipeline")
}
