package orchestrator

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xaionaro-go/denoise/pkg/audiofile"
)

// LoadScriptFile reads a list of input paths, one per line. Empty lines
// and lines starting with '#' are skipped.
func LoadScriptFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the script file: %w", err)
	}
	defer f.Close()

	var result []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result = append(result, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read the script file: %w", err)
	}
	return result, nil
}

// ListDir returns all WAV files under root, recursively, in lexical order.
func ListDir(root string) ([]string, error) {
	var result []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if audiofile.ContainerByExtension(path) == audiofile.ContainerWAV {
			result = append(result, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk through %q: %w", root, err)
	}
	return result, nil
}
