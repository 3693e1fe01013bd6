package silero

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
)

// DefaultModelURL is the upstream location of the Silero VAD ONNX model.
const DefaultModelURL = "https://github.com/snakers4/silero-vad/raw/master/src/silero_vad/data/silero_vad.onnx"

// ErrChecksumMismatch is returned when a model file does not match the
// configured SHA-256 digest.
var ErrChecksumMismatch = errors.New("silero: model checksum mismatch")

// lockRetryDelay is how often a waiting process retries the cache lock.
const lockRetryDelay = 250 * time.Millisecond

// ModelCache resolves the on-disk location of the ONNX model, downloading it
// on first use. Concurrent processes sharing a cache directory serialise on a
// lock file next to the model.
type ModelCache struct {
	// ModelPath, when set, is an explicit model file. It is returned as-is after an
	// existence check and nothing is downloaded.
	ModelPath string

	// URL is where the model is fetched from. Default: [DefaultModelURL].
	URL string

	// SHA256 is the expected hex digest of the model. Empty disables the check.
	SHA256 string

	// Dir is the cache directory. Default: <user cache dir>/voxclip/models.
	Dir string

	// Client performs the download. Default: http.DefaultClient.
	Client *http.Client

	// Progress receives a progress bar while downloading. Nil disables it.
	Progress io.Writer
}

// Path returns the local model file, downloading it if necessary.
func (c *ModelCache) Path(ctx context.Context) (string, error) {
	if c.ModelPath != "" {
		if _, err := os.Stat(c.ModelPath); err != nil {
			return "", fmt.Errorf("silero: model %q: %w", c.ModelPath, err)
		}
		return c.ModelPath, nil
	}

	rawURL := c.URL
	if rawURL == "" {
		rawURL = DefaultModelURL
	}
	name, err := fileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}

	dir := c.Dir
	if dir == "" {
		if dir, err = DefaultCacheDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("silero: create cache dir %q: %w", dir, err)
	}
	target := filepath.Join(dir, name)

	if ok, err := c.cached(target); err != nil {
		return "", err
	} else if ok {
		return target, nil
	}

	lock := flock.New(target + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("silero: lock model cache: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("silero: lock model cache: %s is held by another process", lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("silero: failed to release model cache lock", "path", lock.Path(), "err", err)
		}
	}()

	// Another process may have finished the download while we waited.
	if ok, err := c.cached(target); err != nil {
		return "", err
	} else if ok {
		return target, nil
	}

	slog.Info("downloading silero model", "url", rawURL, "dest", target)
	if err := c.download(ctx, rawURL, target); err != nil {
		return "", err
	}
	return target, nil
}

// cached reports whether target exists and, when a digest is configured,
// matches it.
func (c *ModelCache) cached(target string) (bool, error) {
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("silero: stat %q: %w", target, err)
	}
	if c.SHA256 == "" {
		return true, nil
	}
	sum, err := fileSHA256(target)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(sum, c.SHA256) {
		return false, fmt.Errorf("%w: %s has %s, want %s", ErrChecksumMismatch, target, sum, c.SHA256)
	}
	return true, nil
}

// download fetches rawURL into a temporary file in the target directory and
// renames it into place once the digest has been verified.
func (c *ModelCache) download(ctx context.Context, rawURL, target string) error {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("silero: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("silero: download %q: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("silero: download %q: unexpected status %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.partial")
	if err != nil {
		return fmt.Errorf("silero: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmpName)
	}()

	progress := c.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("downloading silero model"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher, bar), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("silero: download %q: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("silero: write %q: %w", tmpName, err)
	}
	_ = bar.Finish()

	sum := hex.EncodeToString(hasher.Sum(nil))
	if c.SHA256 != "" && !strings.EqualFold(sum, c.SHA256) {
		return fmt.Errorf("%w: downloaded %s, want %s", ErrChecksumMismatch, sum, c.SHA256)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("silero: install model: %w", err)
	}
	slog.Debug("silero model cached", "path", target, "sha256", sum)
	return nil
}

// DefaultCacheDir returns <user cache dir>/voxclip/models.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("silero: resolve cache dir: %w", err)
	}
	return filepath.Join(base, "voxclip", "models"), nil
}

func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("silero: parse model url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("silero: model url %q has no file name", rawURL)
	}
	return name, nil
}

func fileSHA256(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("silero: open %q: %w", p, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("silero: hash %q: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
