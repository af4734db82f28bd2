// Package runner launches isolated build jobs. The coordinator depends only
// on accept/reject of the launch call; job completion is reported out of band
// by the executor itself.
package runner

import (
	"context"
	"errors"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
)

// ErrLaunchRejected wraps job runtime failures so callers can map them to a
// gateway-class API error.
var ErrLaunchRejected = errors.New("runner: launch rejected")

// LaunchInput carries the identity injected into one build executor instance.
type LaunchInput struct {
	Project    *domain.Project
	Deployment *domain.Deployment
}

// JobRuntime starts one isolated build executor per deployment.
type JobRuntime interface {
	LaunchBuildJob(ctx context.Context, input LaunchInput) (jobID string, err error)
}
