package tasks

import (
	"context"

	"github.com/tubewatch/tubewatch/app/tracker"
)

// TaskSchedulerInterface is the surface the main application and the API
// layer use to manage background task processing.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// ChannelChecker runs one tracking pass for a channel.
type ChannelChecker interface {
	CheckChannel(ctx context.Context, channelID string, force bool) (*tracker.CheckResult, error)
}
