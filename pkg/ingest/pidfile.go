package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PIDFile is the durable record one service keeps of its current pids.
type PIDFile struct {
	Service   string    `json:"service"`
	PIDs      []int     `json:"pids"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultPIDDir returns ~/.energy_audit/pids.
func DefaultPIDDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".energy_audit", "pids")
}

var fileNameReplacer = strings.NewReplacer("/", "_", `\`, "_", ":", "_", "..", "_")

// FileName maps a service to its file name inside the pid directory. When
// sanitising changes the name, a short digest of the raw name is appended
// so that e.g. "a/b" and "a_b" do not share a file.
func FileName(service string) string {
	raw := strings.TrimSpace(service)
	name := fileNameReplacer.Replace(raw)
	if name == "" || strings.HasPrefix(name, ".") {
		name = "_" + name
	}
	if name != raw {
		name += "-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw)).String()[:8]
	}
	return name + ".json"
}

// WriteFile atomically replaces the service's pid file in dir: the document
// goes to a temp file in the same directory, is synced, then renamed over
// the target. Readers see the old or the new document, never a mix.
func WriteFile(dir string, f PIDFile) (string, error) {
	if f.Service == "" {
		return "", fmt.Errorf("%w: empty service", ErrDecode)
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}
	if f.PIDs == nil {
		f.PIDs = []int{}
	}
	body, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ingest: encode pid file: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	final := filepath.Join(dir, FileName(f.Service))

	tmp, err := os.CreateTemp(dir, "."+FileName(f.Service)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	tmpName := tmp.Name()
	cleanup := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	if _, err := tmp.Write(body); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	return final, nil
}

// ReadFile loads one pid file. PIDs come back sorted and de-duplicated.
func ReadFile(path string) (PIDFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PIDFile{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	var f PIDFile
	if err := json.Unmarshal(b, &f); err != nil {
		return PIDFile{}, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}
	if f.Service == "" {
		return PIDFile{}, fmt.Errorf("%w: %s: empty service", ErrDecode, filepath.Base(path))
	}
	f.PIDs = normalize(f.PIDs)
	return f, nil
}

func normalize(pids []int) []int {
	out := make([]int, 0, len(pids))
	for _, p := range pids {
		if p > 0 {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
