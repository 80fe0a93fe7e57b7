package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/sharefile-go/internal/watch"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload files to a folder (default: the home folder)",
		Long: `Upload one or more files. Without --folder each file goes to the
account's home folder.

With --watch DIR the command keeps running and uploads every file that
appears in DIR once it has stopped changing for the settle period. Hidden
files and editor temporaries are skipped. Stop it with Ctrl-C.`,
		RunE: runUpload,
	}

	cmd.Flags().String("folder", "", "destination folder id")
	cmd.Flags().String("watch", "", "directory to watch for new files")
	cmd.Flags().Duration("settle", watch.DefaultSettle, "quiet period before a watched file is uploaded")

	return cmd
}

// uploadOutput is the JSON schema for one uploaded file.
type uploadOutput struct {
	Path     string `json:"path"`
	FolderID string `json:"folder_id,omitempty"`
	Size     int64  `json:"size"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)
	folderID, _ := cmd.Flags().GetString("folder")
	watchDir, _ := cmd.Flags().GetString("watch")
	settle, _ := cmd.Flags().GetDuration("settle")

	if watchDir == "" && len(args) == 0 {
		return fmt.Errorf("upload: nothing to do, name files or pass --watch DIR")
	}

	if watchDir != "" && len(args) > 0 {
		return fmt.Errorf("upload: files and --watch are mutually exclusive")
	}

	return withSession(ctx, cc, func(s *Session) error {
		if watchDir != "" {
			return watchAndUpload(ctx, cmd, s, watchDir, folderID, settle)
		}

		var results []uploadOutput

		for i, path := range args {
			if ctx.Err() != nil {
				return fmt.Errorf("upload: stopped after %d of %d files: %w", i, len(args), context.Cause(ctx))
			}

			out, err := uploadOne(ctx, cc, s, path, folderID)
			if err != nil {
				return err
			}

			results = append(results, out)
		}

		if cc.Flags.JSON {
			return printJSON(cmd.OutOrStdout(), results)
		}

		return nil
	})
}

// uploadOne uploads path and journals the attempt. Once started, the upload
// is not cut short by cancellation of ctx; a second interrupt exits instead.
func uploadOne(ctx context.Context, cc *CLIContext, s *Session, path, folderID string) (uploadOutput, error) {
	ctx = context.WithoutCancel(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return uploadOutput{}, fmt.Errorf("upload: %w", err)
	}

	if !info.Mode().IsRegular() {
		return uploadOutput{}, fmt.Errorf("upload: %s is not a regular file", path)
	}

	if folderID == "" {
		_, err = s.Client.UploadFileToHome(ctx, path)
	} else {
		_, err = s.Client.UploadFile(ctx, folderID, path)
	}

	s.Record(ctx, opUpload, path, nil, err)

	if err != nil {
		return uploadOutput{}, err
	}

	cc.Statusf("Uploaded %s (%s)\n", path, formatSize(info.Size()))

	return uploadOutput{Path: path, FolderID: folderID, Size: info.Size()}, nil
}

// watchAndUpload runs the directory watcher and a sequential uploader until
// ctx is cancelled. Failed uploads are logged and journaled; they do not stop
// the watch.
func watchAndUpload(ctx context.Context, cmd *cobra.Command, s *Session, dir, folderID string, settle time.Duration) error {
	cc := mustCLIContext(ctx)

	unlock, err := writePIDFile(watchPIDPath(cc.Cfg.ResolvedStateDir()))
	if err != nil {
		return err
	}
	defer unlock()

	events := make(chan watch.Event)
	w := watch.New(dir, settle, cc.Logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(gctx, events)
	})

	g.Go(func() error {
		return uploadEvents(gctx, cc, cmd.OutOrStdout(), s, events, folderID)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// uploadEvents consumes events until the channel closes. The watcher closes
// it when ctx is cancelled; the upload in progress at that point still ends.
func uploadEvents(ctx context.Context, cc *CLIContext, w io.Writer, s *Session, events <-chan watch.Event, folderID string) error {
	uploaded := 0

	for ev := range events {
		out, err := uploadOne(ctx, cc, s, ev.Path, folderID)
		if err != nil {
			cc.Logger.Warn("watched upload failed",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()),
			)

			continue
		}

		uploaded++

		if cc.Flags.JSON {
			if err := printJSON(w, out); err != nil {
				return err
			}
		}
	}

	cc.Logger.Info("watch stopped", slog.Int("uploaded", uploaded))

	return nil
}
