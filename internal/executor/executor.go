// Package executor implements the build job that runs once per deployment
// inside an isolated container. It clones the project, installs and builds
// it while streaming every output line into the log pipeline, then uploads
// the build output to the artifact store.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/domain"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/git"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/internal/workspace"
	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/config"
)

// ErrNoOutputDir indicates none of the conventional output directories
// existed after a successful build.
var ErrNoOutputDir = errors.New("no output directory found")

// Publisher appends log events to the pipeline. Failures must already be
// bounded-retried inside; the executor treats them as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event domain.LogEvent) error
}

// Uploader stores one artifact under a project-scoped key.
type Uploader interface {
	Put(ctx context.Context, projectID, relPath string, body io.Reader) error
}

// Reporter delivers the terminal deployment status to the coordinator.
type Reporter interface {
	Report(ctx context.Context, deploymentID, status, detail string) error
}

// Service runs one build from clone to upload. It is single-use: a fresh
// instance per deployment, no state shared with other builds.
type Service struct {
	cfg      config.BuilderConfig
	pub      Publisher
	store    Uploader
	reporter Reporter
	ws       *workspace.Manager
	log      *slog.Logger
	seq      int64
}

// New constructs an executor service.
func New(cfg config.BuilderConfig, pub Publisher, store Uploader, reporter Reporter, ws *workspace.Manager, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, pub: pub, store: store, reporter: reporter, ws: ws, log: logger}
}

// Run executes the build sequence. Any terminal failure is published to the
// log stream, reported to the coordinator as FAILED, and returned so the
// process can exit non-zero. There is no internal retry: relaunching the
// whole job is the recovery mechanism.
func (s *Service) Run(ctx context.Context) error {
	s.publish(ctx, "Build Started...")

	dir, err := s.ws.Prepare(s.cfg.DeploymentID)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("prepare workspace: %w", err))
	}

	s.publishf(ctx, "Cloning %s", s.cfg.RepoURL)
	cloneCtx, cancel := context.WithTimeout(ctx, s.cfg.CloneTimeout)
	err = git.Clone(cloneCtx, s.cfg.RepoURL, dir)
	cancel()
	if err != nil {
		return s.fail(ctx, err)
	}

	s.publish(ctx, "Cleaning up previous installations...")
	if err := clearDependencyState(dir); err != nil {
		return s.fail(ctx, fmt.Errorf("clean dependency state: %w", err))
	}
	if err := s.runStep(ctx, "install", s.cfg.InstallCommand, dir); err != nil {
		return s.fail(ctx, err)
	}
	if err := s.runStep(ctx, "build", s.cfg.BuildCommand, dir); err != nil {
		return s.fail(ctx, err)
	}

	outputDir, err := FindOutputDir(dir, s.cfg.OutputCandidates)
	if err != nil {
		s.publishf(ctx, "Could not find any output directory (tried: %v)", s.cfg.OutputCandidates)
		return s.fail(ctx, err)
	}
	s.publishf(ctx, "Found output in: %s", filepath.Base(outputDir))

	uploaded, err := s.uploadAll(ctx, outputDir)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.publish(ctx, "Deployment completed successfully")
	s.report(ctx, domain.StatusReady, fmt.Sprintf("uploaded %d files", uploaded))
	return nil
}

// fail publishes the terminal error into the log stream so the user sees it,
// reports FAILED, and hands the error back for the exit status.
func (s *Service) fail(ctx context.Context, err error) error {
	s.publishf(ctx, "Build failed: %v", err)
	s.report(ctx, domain.StatusFailed, err.Error())
	return err
}

func (s *Service) report(ctx context.Context, status, detail string) {
	if s.reporter == nil {
		return
	}
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallbackTimeout)
	defer cancel()
	if err := s.reporter.Report(reportCtx, s.cfg.DeploymentID, status, detail); err != nil {
		s.log.Error("status report failed", "status", status, "error", err)
	}
}

// publish emits one log line with the next emission sequence number,
// starting at zero. Publish failures are non-fatal: the producer already
// retried, the build goes on and the line is lost from the stream only.
func (s *Service) publish(ctx context.Context, line string) {
	event := domain.LogEvent{
		EventID:      uuid.NewString(),
		DeploymentID: s.cfg.DeploymentID,
		ProjectID:    s.cfg.ProjectID,
		Seq:          s.seq,
		Log:          line,
		CreatedAt:    time.Now().UTC(),
	}
	s.seq++
	_ = s.pub.Publish(ctx, event)
}

func (s *Service) publishf(ctx context.Context, format string, args ...any) {
	s.publish(ctx, fmt.Sprintf(format, args...))
}

// uploadAll walks the output directory and uploads every regular file,
// preserving relative paths. Directories are skipped, not uploaded.
func (s *Service) uploadAll(ctx context.Context, outputDir string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(outputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		s.publishf(ctx, "Uploading %s", rel)
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", rel, err)
		}
		putErr := s.store.Put(ctx, s.cfg.ProjectID, rel, file)
		file.Close()
		if putErr != nil {
			return putErr
		}
		s.publishf(ctx, "Uploaded %s", rel)
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	s.publishf(ctx, "Uploaded %d files", uploaded)
	return uploaded, nil
}

// FindOutputDir probes the ordered candidate list relative to root and
// returns the first existing directory.
func FindOutputDir(root string, candidates []string) (string, error) {
	for _, name := range candidates {
		dir := filepath.Join(root, name)
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", ErrNoOutputDir
}

// clearDependencyState removes leftovers a cached clone could carry so the
// install starts from a known state.
func clearDependencyState(dir string) error {
	if err := os.RemoveAll(filepath.Join(dir, "node_modules")); err != nil {
		return err
	}
	lock := filepath.Join(dir, "package-lock.json")
	if err := os.Remove(lock); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
