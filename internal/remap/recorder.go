package remap

import (
	"log/slog"

	"livelits/internal/literals"
)

// Recorder wraps a Store and logs every decision it makes.
type Recorder struct {
	next   Store
	logger *slog.Logger
}

// NewRecorder decorates next with logging.
func NewRecorder(next Store, logger *slog.Logger) *Recorder {
	return &Recorder{next: next, logger: logger}
}

// AddConstant forwards to the wrapped store.
func (r *Recorder) AddConstant(scopeKey, ownerPath string, oldValue, newValue any) bool {
	applied := r.next.AddConstant(scopeKey, ownerPath, oldValue, newValue)
	if applied {
		r.logger.Info("Constant remapped",
			"owner", ownerPath,
			"old", literals.Format(oldValue),
			"new", literals.Format(newValue),
		)
	} else {
		r.logger.Debug("Constant rejected",
			"owner", ownerPath,
			"oldKind", string(literals.KindOf(oldValue)),
			"newKind", string(literals.KindOf(newValue)),
		)
	}
	return applied
}

// ClearConstants forwards to the wrapped store.
func (r *Recorder) ClearConstants(scopeKey string) {
	r.next.ClearConstants(scopeKey)
	r.logger.Info("Constants cleared", "scope", scopeKey)
}
