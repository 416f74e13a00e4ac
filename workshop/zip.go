package workshop

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/fileutil"
	"github.com/toxikkmodding/toxikk-launcher/logging"
	"golang.org/x/sync/errgroup"
)

const (
	zipConcurrency = 4
	headTimeout    = 5 * time.Second
)

// downloadZipItems refreshes the .zip items of todo, a few at a time.
// Failures are logged per item and don't stop the others.
func (w *Workshop) downloadZipItems(ctx context.Context, todo []Item) error {
	var zips []Item
	for _, it := range todo {
		if it.ZipURL != "" {
			zips = append(zips, it)
		}
	}
	if len(zips) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(zipConcurrency)
	for i, it := range zips {
		g.Go(func() error {
			status, err := w.updateZipItem(gctx, it)
			if err != nil {
				w.log.Errorf(logging.DestinationWorkshop, "%s (%d/%d): %v", it.ZipURL, i+1, len(zips), err)
				return nil
			}
			w.log.Infof(logging.DestinationWorkshop, "%s (%d/%d) ... %s", it.ZipURL, i+1, len(zips), status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// updateZipItem downloads and extracts it unless the remote archive is older than the local folder
func (w *Workshop) updateZipItem(ctx context.Context, it Item) (string, error) {
	dir := filepath.Join(w.cfg.WorkshopDir, it.FolderName)

	remote, err := w.remoteModified(ctx, it.ZipURL)
	if err != nil {
		return "", err
	}
	if w.upToDate(ctx, it, dir, remote) {
		return "up-to-date", nil
	}

	archive := dir + ".zip"
	if err := w.download(ctx, it.ZipURL, archive); err != nil {
		_ = w.fs.Remove(archive)
		return "", fmt.Errorf("failed to download: %w", err)
	}
	if err := extractZip(w.fs, archive, dir, it.FolderName); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", archive, err)
	}
	if !remote.IsZero() {
		if err := w.fs.Chtimes(dir, remote, remote); err != nil {
			w.log.Warnf(logging.DestinationWorkshop, "failed to set time of %s: %v", dir, err)
		}
	}
	_ = w.fs.Remove(archive)

	if w.cfg.Ledger != nil {
		if err := w.cfg.Ledger.RecordDownload(ctx, it.FolderName, it.ZipURL, remote); err != nil {
			w.log.Warnf(logging.DestinationWorkshop, "%v", err)
		}
	}
	return "downloaded", nil
}

// remoteModified returns the Last-Modified time of url, zero when the server sends none
func (w *Workshop) remoteModified(ctx context.Context, url string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := w.cfg.HTTPClient.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return time.Time{}, fmt.Errorf("HEAD %s: %s", url, resp.Status)
	}

	modified, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	if err != nil {
		return time.Time{}, nil
	}
	return modified.UTC(), nil
}

// upToDate reports whether the extracted folder matches the remote time, either through its
// modification time or through the ledger
func (w *Workshop) upToDate(ctx context.Context, it Item, dir string, remote time.Time) bool {
	if remote.IsZero() {
		return false
	}
	info, err := w.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	if d := info.ModTime().Sub(remote); d > -time.Second && d < time.Second {
		return true
	}
	if w.cfg.Ledger == nil {
		return false
	}
	rec, ok, err := w.cfg.Ledger.Get(ctx, it.FolderName)
	return err == nil && ok && rec.URL == it.ZipURL && rec.LastModified.Equal(remote)
}

// download stores url at path, throttled by the shared download limiter
func (w *Workshop) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := w.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	f, err := w.fs.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, w.cfg.Downloads.Reader(ctx, resp.Body)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// extractZip replaces dir with the content of archive.
// An archive holding a single <folderName> top folder is flattened into dir.
func extractZip(fsys afero.Fs, archive, dir, folderName string) error {
	f, err := fsys.Open(archive)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	if err := fsys.RemoveAll(dir); err != nil {
		return err
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	root := filepath.Clean(dir) + string(filepath.Separator)
	for _, zf := range zr.File {
		target := filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(zf.Name, `\`, "/")))
		if target != filepath.Clean(dir) && !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal path in archive: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := fsys.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(fsys, zf, target); err != nil {
			return err
		}
	}

	return flattenDuplicate(fsys, dir, folderName)
}

func extractFile(fsys afero.Fs, zf *zip.File, target string) error {
	if err := fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := fsys.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil { // #nosec G110 -- archives come from the operator's own item list
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if zf.Modified.IsZero() {
		return nil
	}
	return fsys.Chtimes(target, zf.Modified, zf.Modified)
}

// flattenDuplicate moves the entries of dir/<folderName> one level up
func flattenDuplicate(fsys afero.Fs, dir, folderName string) error {
	dupe := filepath.Join(dir, folderName)
	if ok, _ := afero.DirExists(fsys, dupe); !ok {
		return nil
	}
	if err := fileutil.Mirror(fsys, dupe, dir, nil); err != nil {
		return err
	}
	return fsys.RemoveAll(dupe)
}
