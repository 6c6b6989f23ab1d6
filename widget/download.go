package widget

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/openclaw/qrstudio/render"
)

// DownloadFilename is the fixed name of every exported image.
const DownloadFilename = "qr-code.png"

// Download is a one-shot file-save request produced by an export.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
	DataURI     string
}

func newDownload(s *render.Surface) (Download, bool) {
	data, err := s.PNG()
	if err != nil {
		return Download{}, false
	}
	return Download{
		Filename:    DownloadFilename,
		ContentType: "image/png",
		Data:        data,
		DataURI:     render.PNGDataURI(data),
	}, true
}

// SaveDownload writes d into dir under d.Filename and returns the final path.
// The data goes to a temporary file first, which is removed if anything
// fails before the rename.
func SaveDownload(dir string, d Download) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".qr-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if _, err = tmp.Write(d.Data); err != nil {
		return "", fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}

	path = filepath.Join(dir, d.Filename)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("renaming to %s: %w", path, err)
	}
	return path, nil
}
