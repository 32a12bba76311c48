package cleanup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/apex/log"
	"k8s.io/apimachinery/pkg/util/sets"

	"tasnim.dev/aws-sweep/internal/aws/awserr"
	"tasnim.dev/aws-sweep/internal/aws/efs"
	"tasnim.dev/aws-sweep/internal/retry"
)

// FileSystemAPI is the slice of the EFS client the pruner drives.
type FileSystemAPI interface {
	ListFileSystems(ctx context.Context) ([]efs.FileSystemInfo, error)
	ListMountTargets(ctx context.Context, fileSystemID string) ([]efs.MountTargetInfo, error)
	DeleteMountTarget(ctx context.Context, mountTargetID string) error
	DeleteFileSystem(ctx context.Context, fileSystemID string) error
}

const notebookTagMarker = "sagemaker"

// FileSystemPruner removes file systems left behind by deleted notebook
// domains.
type FileSystemPruner struct {
	fs     FileSystemAPI
	logger log.Interface
	poll   retry.Config
}

func NewFileSystemPruner(fs FileSystemAPI, logger log.Interface, opts ...Option) *FileSystemPruner {
	o := buildOptions(opts)
	return &FileSystemPruner{
		fs:     fs,
		logger: logger,
		poll:   o.poll,
	}
}

// RedundantFileSystems returns notebook file systems whose creation token is
// not an active domain id, sorted by id.
func (p *FileSystemPruner) RedundantFileSystems(ctx context.Context, activeDomainIDs sets.Set[string]) ([]efs.FileSystemInfo, error) {
	all, err := p.fs.ListFileSystems(ctx)
	if err != nil {
		return nil, err
	}
	var redundant []efs.FileSystemInfo
	for _, f := range all {
		if !isNotebookFileSystem(f) || activeDomainIDs.Has(f.CreationToken) {
			continue
		}
		redundant = append(redundant, f)
	}
	sort.Slice(redundant, func(i, j int) bool {
		return redundant[i].FileSystemID < redundant[j].FileSystemID
	})
	return redundant, nil
}

func isNotebookFileSystem(f efs.FileSystemInfo) bool {
	for _, v := range f.Tags {
		if strings.Contains(strings.ToLower(v), notebookTagMarker) {
			return true
		}
	}
	return false
}

// DeleteRedundantFileSystems deletes the mount targets of every redundant
// file system, waits for them to disappear and then deletes the file system.
// Only the initial listing error is returned; per-file-system failures are
// reported in the outcomes.
func (p *FileSystemPruner) DeleteRedundantFileSystems(ctx context.Context, activeDomainIDs sets.Set[string], opts DeleteOptions) ([]Outcome, error) {
	redundant, err := p.RedundantFileSystems(ctx, activeDomainIDs)
	if err != nil {
		return nil, fmt.Errorf("DeleteRedundantFileSystems: %w", err)
	}

	outcomes := make([]Outcome, 0, len(redundant))
	for _, f := range redundant {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{ID: f.FileSystemID, Status: StatusFailed, Err: err})
			continue
		}
		outcomes = append(outcomes, p.deleteFileSystem(ctx, f, opts))
	}
	return outcomes, nil
}

func (p *FileSystemPruner) deleteFileSystem(ctx context.Context, f efs.FileSystemInfo, opts DeleteOptions) Outcome {
	logger := p.logger.WithFields(log.Fields{
		"file_system_id": f.FileSystemID,
		"creation_token": f.CreationToken,
	})
	if opts.DryRun {
		logger.Info("dry run, skipping file system")
		return Outcome{ID: f.FileSystemID, Status: StatusSkipped}
	}

	targets, err := p.fs.ListMountTargets(ctx, f.FileSystemID)
	if err != nil {
		if awserr.IsNotFound(err) {
			logger.WithError(err).Info("file system already deleted")
			return Outcome{ID: f.FileSystemID, Status: StatusAlreadyGone}
		}
		logger.WithError(err).Error("failed to list mount targets")
		return Outcome{ID: f.FileSystemID, Status: StatusFailed, Err: err}
	}

	for _, mt := range targets {
		if err := p.fs.DeleteMountTarget(ctx, mt.MountTargetID); err != nil && !awserr.IsNotFound(err) {
			logger.WithError(err).WithField("mount_target_id", mt.MountTargetID).Error("failed to delete mount target")
			return Outcome{ID: f.FileSystemID, Status: StatusFailed, Err: err}
		}
	}

	if len(targets) > 0 {
		err := waitGone(ctx, p.poll, logger, "mount targets", func(ctx context.Context) (int, error) {
			remaining, err := p.fs.ListMountTargets(ctx, f.FileSystemID)
			return len(remaining), err
		})
		if err != nil {
			logger.WithError(err).Error("mount targets did not disappear")
			return Outcome{ID: f.FileSystemID, Status: StatusFailed, Err: err}
		}
	}

	err = p.fs.DeleteFileSystem(ctx, f.FileSystemID)
	switch {
	case err == nil:
		logger.Info("deleted file system")
		return Outcome{ID: f.FileSystemID, Status: StatusDeleted}
	case awserr.IsNotFound(err):
		logger.WithError(err).Info("file system already deleted")
		return Outcome{ID: f.FileSystemID, Status: StatusAlreadyGone}
	case awserr.IsInUse(err):
		logger.WithError(err).Error("file system still in use")
		return Outcome{ID: f.FileSystemID, Status: StatusFailed, Err: fmt.Errorf("%w: %s: %w", ErrInUse, f.FileSystemID, err)}
	default:
		logger.WithError(err).Error("failed to delete file system")
		return Outcome{ID: f.FileSystemID, Status: StatusFailed, Err: err}
	}
}
