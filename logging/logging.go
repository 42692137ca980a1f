package logging

import "go.uber.org/zap"

// OrGlobal returns l, or the global sugared logger when l is nil.
func OrGlobal(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.S()
	}
	return l
}

// Named returns the global sugared logger tagged with a component name.
func Named(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}
