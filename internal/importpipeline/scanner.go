package importpipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/wkmperrors"
)

var scannerLog = logging.ForService("importpipeline.scanner")

// supportedExtensions lists the file types internal/decoder can open.
// Phase 1 only records files it can eventually decode; anything else is
// silently skipped, same as a non-audio file in the tree.
var supportedExtensions = map[string]bool{
	".wav":  true,
	".flac": true,
}

// scanProgressFunc is called periodically during the walk with the running
// count of files found, for SCANNING's live progress broadcast.
type scanProgressFunc func(filesFound int)

// scanLibrary walks root for supported audio files, respecting ctx
// cancellation between entries. Paths are returned root-relative with
// forward slashes per §6.5.
func scanLibrary(ctx context.Context, root string, onProgress scanProgressFunc) ([]discoveredFile, error) {
	var found []discoveredFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			scannerLog.Warn("error walking path, skipping", "path", path, "error", err)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			scannerLog.Warn("failed to stat file, skipping", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		found = append(found, discoveredFile{
			relPath: rel,
			size:    info.Size(),
			modTime: info.ModTime().UTC(),
		})

		if onProgress != nil && len(found)%50 == 0 {
			onProgress(len(found))
		}
		return nil
	})
	if err != nil {
		return nil, wkmperrors.New(err).Component("importpipeline").
			Category(wkmperrors.CategoryOrchestrator).Context("root", root).Build()
	}

	if onProgress != nil {
		onProgress(len(found))
	}
	return found, nil
}
