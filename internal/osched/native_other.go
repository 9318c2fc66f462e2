//go:build !linux && !darwin

package osched

import "go.uber.org/zap"

// No native scheduler integration on this platform; New falls back to
// the in-process timer.
func newNative(scripts ScriptBuilder, logger *zap.Logger) Adapter { return nil }
