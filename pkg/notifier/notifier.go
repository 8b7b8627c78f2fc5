// Package notifier sends a desktop notification when a run finishes, so
// long builds can be kicked off and left alone.
package notifier

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/iisacc-Justmoong/WhatSon/pkg/logger"
	"github.com/iisacc-Justmoong/WhatSon/pkg/types"
)

// Notifier summarizes a finished run as a desktop notification.
type Notifier struct {
	log     logger.Logger
	enabled bool
}

// New creates a Notifier; disabled instances are no-ops.
func New(log logger.Logger, enabled bool) *Notifier {
	return &Notifier{log: log, enabled: enabled}
}

// NotifyRunFinished reports the overall outcome. Failures to notify are
// logged and otherwise ignored.
func (n *Notifier) NotifyRunFinished(results []types.TaskResult) {
	if !n.enabled || len(results) == 0 {
		return
	}

	succeeded, failed, skipped := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case types.StatusSuccess:
			succeeded++
		case types.StatusFailed:
			failed++
		case types.StatusSkipped:
			skipped++
		}
	}

	title := "WhatSon build finished"
	if failed > 0 {
		title = "WhatSon build failed"
	}
	message := fmt.Sprintf("%d succeeded, %d failed, %d skipped", succeeded, failed, skipped)

	if err := beeep.Notify(title, message, ""); err != nil {
		n.log.Debug("desktop notification failed", logger.WithField("error", err.Error()))
	}
}
