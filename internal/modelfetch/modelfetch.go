// Package modelfetch ensures an ONNX model file is present on disk, guarded
// by a cross-process file lock so concurrent processes don't race to
// download the same file.
package modelfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// DownloadTimeout bounds a single model download.
const DownloadTimeout = 30 * time.Minute

// Spec describes one fetchable model file.
type Spec struct {
	Name     string // human-readable, used in log/error messages
	FileName string // file name within the target directory
	URL      string
}

// Manager ensures model files named by Spec exist under Dir, downloading
// them on first use.
type Manager struct {
	Dir string
}

// New returns a Manager rooted at dir.
func New(dir string) *Manager {
	return &Manager{Dir: dir}
}

// Path returns the path spec's file would live at, whether or not it exists
// yet.
func (m *Manager) Path(spec Spec) string {
	return filepath.Join(m.Dir, spec.FileName)
}

// Exists reports whether spec's file is already present and non-empty.
func (m *Manager) Exists(spec Spec) bool {
	info, err := os.Stat(m.Path(spec))
	return err == nil && info.Size() > 0
}

// Ensure returns the path to spec's file, downloading it under a cross-process
// lock if it is missing.
func (m *Manager) Ensure(ctx context.Context, spec Spec, progress func(downloaded, total int64)) (string, error) {
	path := m.Path(spec)

	if m.Exists(spec) {
		return path, nil
	}

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return "", ragerr.TransientIO("ERR_MODELFETCH_MKDIR",
			fmt.Sprintf("failed to create model directory %s", m.Dir), err)
	}

	lock := NewFileLock(m.Dir)
	if err := lock.Lock(); err != nil {
		return "", ragerr.TransientIO("ERR_MODELFETCH_LOCK",
			fmt.Sprintf("failed to acquire download lock for %s", spec.Name), err)
	}
	defer func() { _ = lock.Unlock() }()

	if m.Exists(spec) {
		return path, nil
	}

	if err := m.download(ctx, spec, path, progress); err != nil {
		return "", err
	}
	return path, nil
}

func (m *Manager) download(ctx context.Context, spec Spec, destPath string, progress func(downloaded, total int64)) error {
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	dlCtx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return ragerr.Configuration("ERR_MODELFETCH_REQUEST",
			fmt.Sprintf("failed to build download request for %s", spec.Name), err)
	}
	req.Header.Set("User-Agent", "ragcore/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ragerr.TransientIO("ERR_MODELFETCH_CONNECT",
			fmt.Sprintf("failed to download %s", spec.Name), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ragerr.TransientIO("ERR_MODELFETCH_STATUS",
			fmt.Sprintf("download of %s failed with status %s", spec.Name, resp.Status), nil)
	}

	file, err := os.Create(tmpPath)
	if err != nil {
		return ragerr.TransientIO("ERR_MODELFETCH_CREATE",
			fmt.Sprintf("failed to create temp file for %s", spec.Name), err)
	}

	totalSize := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-dlCtx.Done():
			file.Close()
			return dlCtx.Err()
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				file.Close()
				return ragerr.TransientIO("ERR_MODELFETCH_WRITE",
					fmt.Sprintf("failed writing %s", spec.Name), writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, totalSize)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			return ragerr.TransientIO("ERR_MODELFETCH_READ",
				fmt.Sprintf("failed reading response body for %s", spec.Name), readErr)
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return ragerr.TransientIO("ERR_MODELFETCH_SYNC", fmt.Sprintf("failed to sync %s", spec.Name), err)
	}
	if err := file.Close(); err != nil {
		return ragerr.TransientIO("ERR_MODELFETCH_CLOSE", fmt.Sprintf("failed to close %s", spec.Name), err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return ragerr.TransientIO("ERR_MODELFETCH_RENAME", fmt.Sprintf("failed to finalize %s", spec.Name), err)
	}
	return nil
}
