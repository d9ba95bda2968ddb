package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// readpstTimeout bounds a single extraction run. Large PSTs take a while;
// a hung readpst should not pin a worker forever.
const readpstTimeout = 10 * time.Minute

// ExtractPST extracts a PST file into individual .eml files by shelling
// out to readpst (libpst). Returns the paths of the emitted messages,
// which the caller feeds through ParseEML.
func ExtractPST(ctx context.Context, pstPath, outDir string) ([]string, error) {
	readpst, err := exec.LookPath("readpst")
	if err != nil {
		return nil, fmt.Errorf("readpst not found in PATH (install libpst): %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, readpstTimeout)
	defer cancel()

	// -e: one .eml file per message, preserving the folder hierarchy.
	// -D: include deleted items, archives are for completeness.
	cmd := exec.CommandContext(ctx, readpst, "-e", "-D", "-o", outDir, pstPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("readpst failed: %w: %s", err, truncateOutput(out))
	}

	var emlPaths []string
	err = filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".eml") {
			emlPaths = append(emlPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk readpst output: %w", err)
	}

	return emlPaths, nil
}

// WritePSTTemp stages archive bytes into a temp file for readpst, which
// only reads from disk. Caller removes the returned directory.
func WritePSTTemp(data []byte) (dir, pstPath string, err error) {
	dir, err = os.MkdirTemp("", "mailvault-pst-*")
	if err != nil {
		return "", "", err
	}

	pstPath = filepath.Join(dir, "archive.pst")
	if err := os.WriteFile(pstPath, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}

	return dir, pstPath, nil
}

func truncateOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
