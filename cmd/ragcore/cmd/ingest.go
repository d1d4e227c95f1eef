package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ragcore/ragcore/internal/gitignore"
	"github.com/ragcore/ragcore/internal/ragerr"
	"github.com/ragcore/ragcore/internal/writer"
)

// supportedExtensions are the file types read as already-extracted plain
// text. PDF/HTML/OCR extraction is an external collaborator (spec.md §1);
// this CLI ingests text and Markdown directly.
var supportedExtensions = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
}

func newIngestCmd() *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "ingest <folder>",
		Short: "Ingest a folder of documents into the retrieval core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, args[0], fresh)
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "delete all persisted indexes and re-ingest from scratch")
	return cmd
}

func runIngest(ctx context.Context, folder string, fresh bool) error {
	root, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("resolve folder: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", root)
	}

	sess, closeSession, err := openSession(ctx, root)
	if err != nil {
		return err
	}
	defer closeSession()

	if fresh {
		slog.Info("ingest_fresh_reset", slog.String("root", root))
		if err := sess.writer.Reset(ctx); err != nil {
			return fmt.Errorf("fresh reset: %w", err)
		}
	}

	matcher := gitignore.New()
	_ = matcher.AddFromFile(filepath.Join(root, ".gitignore"), root)

	filesIngested := 0
	filesSkipped := 0

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, _ := filepath.Rel(root, path)
		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		sourceType, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
		if !ok {
			slog.Warn("ingest_unsupported_extension", slog.String("path", rel))
			filesSkipped++
			return nil
		}

		if err := ingestFile(ctx, sess, path, rel, sourceType); err != nil {
			if ragerr.IsFatal(err) {
				return err
			}
			slog.Warn("ingest_file_failed", slog.String("path", rel), slog.String("error", err.Error()))
			filesSkipped++
			return nil
		}
		filesIngested++
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	if err := sess.writer.SaveVectorIndex(); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	size, _ := sess.writer.Size(ctx)
	slog.Info("ingest_complete",
		slog.Int("files_ingested", filesIngested),
		slog.Int("files_skipped", filesSkipped),
		slog.Int("total_chunks", size))
	return nil
}

func ingestFile(ctx context.Context, sess *session, path, sourceURI, sourceType string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ragerr.TransientIO("ERR_INGEST_READ", fmt.Sprintf("failed to read %s", path), err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return ragerr.UserContent("ERR_INGEST_EMPTY", fmt.Sprintf("%s has no extractable text", sourceURI), nil)
	}

	records := sess.chunker.Split(sourceURI, sourceType, text)
	if len(records) == 0 {
		return ragerr.UserContent("ERR_INGEST_NO_CHUNKS", fmt.Sprintf("%s produced no chunks", sourceURI), nil)
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Content
	}
	vectors, err := sess.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s: %w", sourceURI, err)
	}

	batch := make([]writer.Record, len(records))
	for i, r := range records {
		batch[i] = writer.Record{
			Content:     r.Content,
			SourceURI:   r.SourceURI,
			SourceType:  r.SourceType,
			ChunkIndex:  r.ChunkIndex,
			TotalChunks: r.TotalChunks,
			Vector:      vectors[i],
		}
	}

	if _, err := sess.writer.AddBatch(ctx, batch); err != nil {
		return fmt.Errorf("add batch for %s: %w", sourceURI, err)
	}
	return nil
}
